//go:build !linux

package serialport

func flushInput(any) error {
	return ErrUnsupported
}

func inputQueued(any) (int, error) {
	return 0, ErrUnsupported
}
