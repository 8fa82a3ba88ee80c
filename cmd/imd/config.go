package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vixalie/interactive-model-downloader/internal/config"
)

func runConfig(args []string) int {
	fs := flag.NewFlagSet("config", flag.ExitOnError)

	civitaiToken := fs.String("civitai-token", "", "Set the catalog API token")
	hfToken := fs.String("huggingface-token", "", "Set the hub API token")
	cachePath := fs.String("cache-path", "", "Set the cache database path")
	proxyProtocol := fs.String("proxy-protocol", "", "Set the proxy protocol (http, https, socks5)")
	proxyHost := fs.String("proxy-host", "", "Set the proxy host")
	proxyPort := fs.Int("proxy-port", 0, "Set the proxy port")
	proxyUser := fs.String("proxy-username", "", "Set the proxy username")
	proxyPassword := fs.String("proxy-password", "", "Set the proxy password")
	clearProxy := fs.Bool("clear-proxy", false, "Remove the proxy configuration")
	show := fs.Bool("show", false, "Print the effective configuration")
	configPath := fs.String("config", "", "Config file path (default: ~/.config/imd/config.yaml)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: imd config [options]

Show or update the stored configuration. Setter flags update the
config file in place; -show prints the effective configuration with
tokens redacted.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitConfigError
		}
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitConfigError
	}

	changed := false
	if *civitaiToken != "" {
		cfg.CivitaiToken = *civitaiToken
		changed = true
	}
	if *hfToken != "" {
		cfg.HuggingFaceToken = *hfToken
		changed = true
	}
	if *cachePath != "" {
		cfg.CachePath = *cachePath
		changed = true
	}
	if *proxyProtocol != "" {
		cfg.Proxy.Protocol = *proxyProtocol
		changed = true
	}
	if *proxyHost != "" {
		cfg.Proxy.Host = *proxyHost
		changed = true
	}
	if *proxyPort != 0 {
		cfg.Proxy.Port = *proxyPort
		changed = true
	}
	if *proxyUser != "" {
		cfg.Proxy.Username = *proxyUser
		changed = true
	}
	if *proxyPassword != "" {
		cfg.Proxy.Password = *proxyPassword
		changed = true
	}
	if *clearProxy {
		cfg.Proxy = config.ProxyConfig{}
		changed = true
	}

	if changed {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitConfigError
		}
		if err := cfg.Save(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitConfigError
		}
		fmt.Fprintf(os.Stderr, "[imd] Configuration written to %s\n", path)
	}

	if *show || !changed {
		printConfig(cfg)
	}
	return ExitSuccess
}

func printConfig(cfg config.Config) {
	fmt.Printf("civitai_token: %s\n", redact(cfg.CivitaiToken))
	fmt.Printf("huggingface_token: %s\n", redact(cfg.HuggingFaceToken))
	fmt.Printf("cache_path: %s\n", orDefault(cfg.CachePath, "<default>"))
	if cfg.Proxy.Enabled() {
		fmt.Printf("proxy: %s://%s:%d\n",
			orDefault(cfg.Proxy.Protocol, "http"), cfg.Proxy.Host, cfg.Proxy.Port)
	} else {
		fmt.Println("proxy: <none>")
	}
	fmt.Printf("backoff: initial=%s multiplier=%.2f attempts=%d timeout=%s\n",
		cfg.Backoff.InitialInterval, cfg.Backoff.Multiplier,
		cfg.Backoff.MaxAttempts, cfg.Backoff.AttemptTimeout)
}

func redact(token string) string {
	if token == "" {
		return "<unset>"
	}
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
