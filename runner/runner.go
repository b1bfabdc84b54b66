// Copyright 2026 The Mcpvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package runner executes the external tools mcpvisor relies upon (git,
// the package managers, and the process supervisor).  Output of captured
// commands is forwarded line by line to a logger, and the last lines are
// retained so that failures can be reported with some context.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds captured commands when no timeout is configured.
const DefaultTimeout = 10 * time.Minute

// WaitDelay bounds how long output is drained after a captured command
// exits or is killed.
const WaitDelay = 2 * time.Second

// Cmd is a command to run.  Env entries are added to the environment of
// the current process.  Attached commands share our terminal: their output
// is neither logged nor captured, and they are not subject to the timeout.
// This is what interactive commands (such as following logs) need.
type Cmd struct {
	Name   string
	Args   []string
	Dir    string
	Env    []string
	Attach bool
}

func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner is the interface through which external tools are used.
type Runner interface {
	// LookPath reports where a tool is installed.
	LookPath(name string) (string, error)

	// Run runs the command to completion.
	Run(ctx context.Context, c Cmd) error

	// Output runs the command, returning its standard output.
	// Standard error is logged.
	Output(ctx context.Context, c Cmd) ([]byte, error)
}

// ExitError reports a failed command, with the tail of its output.
type ExitError struct {
	Cmd  string
	Err  error
	Tail []string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Cmd, e.Err)
	if len(e.Tail) != 0 {
		msg += "\n  " + strings.Join(e.Tail, "\n  ")
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exec runs commands on the local system.
type Exec struct {
	Logger  *log.Logger
	Timeout time.Duration
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	TailLen int
}

// NewExec returns an Exec attached to the process' standard streams.
func NewExec(logger *log.Logger, timeout time.Duration) *Exec {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Exec{
		Logger:  logger,
		Timeout: timeout,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		TailLen: DefaultTailLen,
	}
}

func (x *Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (x *Exec) logf(format string, v ...interface{}) {
	if x.Logger != nil {
		x.Logger.Printf(format, v...)
	}
}

func (x *Exec) command(ctx context.Context, c Cmd) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) != 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd
}

// lineLog is handed to exec.Cmd as Stdout or Stderr.  It splits what the
// command writes into lines, handing each to the logger and the tail.
type lineLog struct {
	x      *Exec
	prefix string
	tail   *Tail
	buf    []byte
}

func (l *lineLog) emit(line []byte) {
	s := strings.TrimRight(string(line), "\r")
	l.x.logf("%s%s", l.prefix, s)
	l.tail.Add(s)
}

func (l *lineLog) Write(p []byte) (int, error) {
	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		l.emit(l.buf[:i])
		l.buf = l.buf[i+1:]
	}
	return len(p), nil
}

// flush emits a final line that lacked a newline.
func (l *lineLog) flush() {
	if len(l.buf) != 0 {
		l.emit(l.buf)
		l.buf = nil
	}
}

func (x *Exec) timeout() time.Duration {
	if x.Timeout > 0 {
		return x.Timeout
	}
	return DefaultTimeout
}

func (x *Exec) run(ctx context.Context, c Cmd, stdout io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout())
	defer cancel()

	cmd := x.command(ctx, c)
	// Children of the command (npm and pip start some) may keep our
	// pipes open after it exits or is killed.  Wait gives them this long
	// before closing the pipes itself.
	cmd.WaitDelay = WaitDelay
	tail := NewTail(x.TailLen)

	errLog := &lineLog{x: x, prefix: "stderr> ", tail: tail}
	cmd.Stderr = errLog
	var outLog *lineLog
	if stdout != nil {
		cmd.Stdout = stdout
	} else {
		outLog = &lineLog{x: x, prefix: "stdout> ", tail: tail}
		cmd.Stdout = outLog
	}

	x.logf("Running %s", c)
	e := cmd.Run()
	if outLog != nil {
		outLog.flush()
	}
	errLog.flush()

	switch {
	case e == nil:
		return nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		x.logf("Timeout waiting for %s", c.Name)
		e = fmt.Errorf("timed out after %v: %w", x.timeout(), e)
	case errors.Is(e, exec.ErrWaitDelay):
		// exited cleanly, leaving something behind holding its output
		x.logf("%s left background processes running", c.Name)
		return nil
	}
	return &ExitError{Cmd: c.String(), Err: e, Tail: tail.Lines()}
}

func (x *Exec) Run(ctx context.Context, c Cmd) error {
	if !c.Attach {
		return x.run(ctx, c, nil)
	}
	cmd := x.command(ctx, c)
	cmd.Stdin = x.Stdin
	cmd.Stdout = x.Stdout
	cmd.Stderr = x.Stderr
	x.logf("Running %s", c)
	if e := cmd.Run(); e != nil {
		return &ExitError{Cmd: c.String(), Err: e}
	}
	return nil
}

func (x *Exec) Output(ctx context.Context, c Cmd) ([]byte, error) {
	var buf bytes.Buffer
	if e := x.run(ctx, c, &buf); e != nil {
		return nil, e
	}
	return buf.Bytes(), nil
}
