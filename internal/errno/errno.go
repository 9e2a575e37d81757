// Package errno defines the POSIX-style error codes surfaced by the runtime.
//
// Codes travel as ordinary Go errors; callers test them with errors.Is. Stream
// operations additionally record a sticky error flag on the stream itself, so a
// caller can learn after the fact that some past operation failed even without
// inspecting every return value.
package errno

import "strconv"

// Errno is a POSIX error code.
type Errno int

// Error codes used by the stream and descriptor layers.
const (
	EPERM     Errno = 1
	ENOENT    Errno = 2
	EINTR     Errno = 4
	EIO       Errno = 5
	EBADF     Errno = 9
	EAGAIN    Errno = 11
	ENOMEM    Errno = 12
	EEXIST    Errno = 17
	EINVAL    Errno = 22
	EMFILE    Errno = 24
	ESPIPE    Errno = 29
	EPIPE     Errno = 32
	ERANGE    Errno = 34
	EOVERFLOW Errno = 75
	EILSEQ    Errno = 84

	// EINTERNAL marks an unreachable code path that was reached anyway. It is
	// a bug indicator in this library, never a user-facing condition.
	EINTERNAL Errno = 1000
)

var messages = map[Errno]string{
	EPERM:     "operation not permitted",
	ENOENT:    "no such file or directory",
	EINTR:     "interrupted system call",
	EIO:       "input/output error",
	EBADF:     "bad file descriptor",
	EAGAIN:    "resource temporarily unavailable",
	ENOMEM:    "cannot allocate memory",
	EEXIST:    "file exists",
	EINVAL:    "invalid argument",
	EMFILE:    "too many open files",
	ESPIPE:    "illegal seek",
	EPIPE:     "broken pipe",
	ERANGE:    "result too large",
	EOVERFLOW: "value too large for defined data type",
	EILSEQ:    "illegal byte sequence",
	EINTERNAL: "internal library error",
}

func (e Errno) Error() string {
	if msg, ok := messages[e]; ok {
		return msg
	}
	return "errno " + strconv.Itoa(int(e))
}
