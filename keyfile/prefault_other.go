//go:build !linux

package keyfile

func prefaultRegion([]byte) {}
