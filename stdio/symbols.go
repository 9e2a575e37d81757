package stdio

import (
	"github.com/phoenixrt/phostdio/internal/fd"
	"github.com/phoenixrt/phostdio/symtab"
)

// Each registered Fn is a method expression taking the runtime or stream as
// its first argument, so a resolver can bind it to whichever instance it is
// hosting.
func init() {
	// Open/close lifecycle
	symtab.RegisterFunc("stdio", "fopen", (*Runtime).Open, "fopen64")
	symtab.RegisterFunc("stdio", "freopen", (*Stream).Reopen, "freopen64")
	symtab.RegisterFunc("stdio", "fdopen", (*Runtime).Fdopen)
	symtab.RegisterFunc("stdio", "fclose", (*Stream).Close)
	symtab.RegisterFunc("stdio", "fflush", (*Runtime).Flush)
	symtab.RegisterFunc("stdio", "setvbuf", (*Stream).SetVbuf)
	symtab.RegisterFunc("stdio", "setbuf", (*Stream).SetBuf)
	symtab.RegisterFunc("stdio", "remove", (*Runtime).Remove)

	// Byte and block transfer
	symtab.RegisterFunc("stdio", "fread", (*Stream).Read)
	symtab.RegisterFunc("stdio", "fwrite", (*Stream).Write)
	symtab.RegisterFunc("stdio", "fgetc", (*Stream).Getc, "getc")
	symtab.RegisterFunc("stdio", "fputc", (*Stream).Putc, "putc")
	symtab.RegisterFunc("stdio", "getc_unlocked", (*Stream).GetcUnlocked, "fgetc_unlocked")
	symtab.RegisterFunc("stdio", "putc_unlocked", (*Stream).PutcUnlocked, "fputc_unlocked")
	symtab.RegisterFunc("stdio", "ungetc", (*Stream).Ungetc)
	symtab.RegisterFunc("stdio", "fgets", (*Stream).Gets)
	symtab.RegisterFunc("stdio", "fputs", (*Stream).WriteString)
	symtab.RegisterFunc("stdio", "puts", (*Stream).Puts)
	symtab.RegisterFunc("stdio", "getdelim", (*Stream).GetDelim)
	symtab.RegisterFunc("stdio", "getline", (*Stream).GetLine)

	// Wide character
	symtab.RegisterFunc("stdio", "fgetwc", (*Stream).Getwc, "getwc")
	symtab.RegisterFunc("stdio", "fputwc", (*Stream).Putwc, "putwc")
	symtab.RegisterFunc("stdio", "ungetwc", (*Stream).Ungetwc)
	symtab.RegisterFunc("stdio", "fwide", (*Stream).Width)

	// Positioning
	symtab.RegisterFunc("stdio", "fseek", (*Stream).Seek, "fseeko", "fseeko64")
	symtab.RegisterFunc("stdio", "ftell", (*Stream).Tell, "ftello", "ftello64")
	symtab.RegisterFunc("stdio", "rewind", (*Stream).Rewind)

	// Status
	symtab.RegisterFunc("stdio", "feof", (*Stream).EOF)
	symtab.RegisterFunc("stdio", "ferror", (*Stream).Err)
	symtab.RegisterFunc("stdio", "clearerr", (*Stream).ClearErr)
	symtab.RegisterFunc("stdio", "fileno", (*Stream).Fileno)

	// Stream locking
	symtab.RegisterFunc("stdio", "flockfile", (*Stream).Lockf)
	symtab.RegisterFunc("stdio", "ftrylockfile", (*Stream).TryLockf)
	symtab.RegisterFunc("stdio", "funlockfile", (*Stream).Unlockf)

	// Formatted output. The v-variants collapse onto the same entry points:
	// a Go argument slice is the va_list.
	symtab.RegisterFunc("stdio", "printf", (*Runtime).Printf, "vprintf")
	symtab.RegisterFunc("stdio", "fprintf", (*Stream).Printf, "vfprintf")
	symtab.RegisterFunc("stdio", "sprintf", Sprintf, "vsprintf")
	symtab.RegisterFunc("stdio", "snprintf", Snprintf, "vsnprintf")
	symtab.RegisterFunc("stdio", "dprintf", (*Runtime).Dprintf, "vdprintf")

	// Formatted input
	symtab.RegisterFunc("stdio", "scanf", (*Runtime).Scanf, "vscanf")
	symtab.RegisterFunc("stdio", "fscanf", (*Stream).Scanf, "vfscanf")
	symtab.RegisterFunc("stdio", "sscanf", Sscanf, "vsscanf")

	// Descriptor plumbing
	symtab.RegisterFunc("unistd", "pipe", (*Runtime).Pipe, "pipe2")
	symtab.RegisterFunc("unistd", "read", (*fd.Table).Read)
	symtab.RegisterFunc("unistd", "write", (*fd.Table).Write)
	symtab.RegisterFunc("unistd", "close", (*fd.Table).Close)
	symtab.RegisterFunc("unistd", "lseek", (*fd.Table).Seek, "lseek64")
	symtab.RegisterFunc("unistd", "dup", (*fd.Table).Dup)
}
