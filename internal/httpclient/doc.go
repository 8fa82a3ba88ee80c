// Package httpclient provides the authenticated HTTP client used for
// catalog metadata and model file requests.
//
// This package handles:
//   - Bearer-token authentication
//   - Optional proxy routing
//   - Mapping response statuses to classified sentinel errors
//   - JSON decoding for catalog API responses
//
// It deliberately does not retry: retry decisions belong to the retry
// policy wrapping the caller. IsTransient exposes the classification
// that policy needs.
//
// # Usage
//
//	client := httpclient.NewClient(httpclient.Options{
//	    Token: cfg.Civitai.APIKey,
//	    Proxy: proxyURL,
//	})
//
//	resp, err := client.Get(ctx, fileURL)
//	// resp.ContentLength, resp.Body
package httpclient
