//go:build !linux

package keyfile

func fadviseSequential(int, int64, int64) {}
