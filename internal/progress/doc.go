// Package progress provides progress reporting for downloads.
//
// This package outputs human-readable progress to stderr: completion
// percentage, transfer speed, and ETA for a single streaming transfer.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Label: "model.safetensors",
//	})
//
//	reporter.Begin(totalBytes)
//	defer reporter.Finish()
//
//	// As bytes arrive
//	reporter.Update(bytesTransferred)
//
// # Output Format
//
//	[imd] Downloading model.safetensors (2.13 GiB)
//	[imd] model.safetensors: 45.2% | 984.32 MiB / 2.13 GiB | 38.15 MiB/s | ETA: 31s
package progress
