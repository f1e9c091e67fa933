// Copyright 2021 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kernelerr contains syscall error codes exported as error interface
// pointers. This allows for fast comparison and return operations. The errno
// behind each error can be recovered for the syscall boundary, where failures
// are reported as negated errno values.
package kernelerr

import (
	goerrors "errors"

	"github.com/AliMorty/OS-Project/pkg/abi/errno"
	"github.com/AliMorty/OS-Project/pkg/errors"
)

// The following errors are semantically identical to the errno constants of
// package abi/errno. Since the type is distinct (*errors.Error), values are
// compared with == against these sentinels, or classified through wrapped
// chains with ToErrno below.
var (
	noError *errors.Error = nil
	EPERM                 = errors.New(errno.EPERM, "operation not permitted")
	ENOENT                = errors.New(errno.ENOENT, "no such file or directory")
	ESRCH                 = errors.New(errno.ESRCH, "no such process")
	EINTR                 = errors.New(errno.EINTR, "interrupted system call")
	EIO                   = errors.New(errno.EIO, "I/O error")
	ENXIO                 = errors.New(errno.ENXIO, "no such device or address")
	E2BIG                 = errors.New(errno.E2BIG, "argument list too long")
	ENOEXEC               = errors.New(errno.ENOEXEC, "exec format error")
	EBADF                 = errors.New(errno.EBADF, "bad file number")
	ECHILD                = errors.New(errno.ECHILD, "no child processes")
	EAGAIN                = errors.New(errno.EAGAIN, "try again")
	ENOMEM                = errors.New(errno.ENOMEM, "out of memory")
	EACCES                = errors.New(errno.EACCES, "permission denied")
	EFAULT                = errors.New(errno.EFAULT, "bad address")
	ENOTBLK               = errors.New(errno.ENOTBLK, "block device required")
	EBUSY                 = errors.New(errno.EBUSY, "device or resource busy")
	EEXIST                = errors.New(errno.EEXIST, "file exists")
	EXDEV                 = errors.New(errno.EXDEV, "cross-device link")
	ENODEV                = errors.New(errno.ENODEV, "no such device")
	ENOTDIR               = errors.New(errno.ENOTDIR, "not a directory")
	EISDIR                = errors.New(errno.EISDIR, "is a directory")
	EINVAL                = errors.New(errno.EINVAL, "invalid argument")
	ENFILE                = errors.New(errno.ENFILE, "file table overflow")
	EMFILE                = errors.New(errno.EMFILE, "too many open files")
	ENOTTY                = errors.New(errno.ENOTTY, "not a typewriter")
	ETXTBSY               = errors.New(errno.ETXTBSY, "text file busy")
	EFBIG                 = errors.New(errno.EFBIG, "file too large")
	ENOSPC                = errors.New(errno.ENOSPC, "no space left on device")
	ESPIPE                = errors.New(errno.ESPIPE, "illegal seek")
	EROFS                 = errors.New(errno.EROFS, "read-only file system")
	EMLINK                = errors.New(errno.EMLINK, "too many links")
	EPIPE                 = errors.New(errno.EPIPE, "broken pipe")

	// Errors equivalent to other errors.
	EWOULDBLOCK = EAGAIN
)

// ToErrno returns the errno carried by err, unwrapping wrapped chains as
// needed. Errors that carry no errno classify as EIO, the catch-all for
// failures crossing the syscall boundary.
func ToErrno(err error) errno.Errno {
	if err == nil {
		return errno.NOERRNO
	}
	var kerr *errors.Error
	if goerrors.As(err, &kerr) {
		return kerr.Errno()
	}
	return errno.EIO
}

// Equals reports whether err carries the same errno as e. It matches both the
// sentinel itself and errors wrapping it.
func Equals(e *errors.Error, err error) bool {
	if err == nil {
		return e == noError
	}
	if e == err {
		return true
	}
	var kerr *errors.Error
	return goerrors.As(err, &kerr) && kerr.Errno() == e.Errno()
}
