//go:build !(linux || darwin || freebsd || netbsd || openbsd || windows)

package env

func machine() string {
	return ""
}
