package audio

import "golang.org/x/sys/unix"

// raisePriority renices the calling thread, which must be locked.
func raisePriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), -10)
}
