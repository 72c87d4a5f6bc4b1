//go:build !windows

package procinfo

func foregroundProcess() (string, error) {
	return "", ErrUnsupported
}
