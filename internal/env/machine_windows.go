package env

import "os"

func machine() string {
	// A 32-bit process on 64-bit Windows sees the emulated architecture in
	// PROCESSOR_ARCHITECTURE.
	if arch := os.Getenv("PROCESSOR_ARCHITEW6432"); arch != "" {
		return arch
	}
	return os.Getenv("PROCESSOR_ARCHITECTURE")
}
