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

package cli

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// levelWriter feeds lines written by a standard logger into zerolog at a
// fixed level, so that the components can keep using *log.Logger.
type levelWriter struct {
	zl    zerolog.Logger
	level zerolog.Level
}

func (w levelWriter) Write(p []byte) (int, error) {
	w.zl.WithLevel(w.level).Msg(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func isTerminal(w io.Writer) (*os.File, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return nil, false
	}
	fd := f.Fd()
	return f, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewLoggers returns an informational logger and a debug logger, both
// writing human readable lines to w.  Debug output is discarded unless
// verbose is set.
func NewLoggers(w io.Writer, verbose bool) (info *log.Logger, debug *log.Logger) {
	color := false
	if f, tty := isTerminal(w); tty {
		w = colorable.NewColorable(f)
		color = true
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !color,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Logger()

	info = log.New(levelWriter{zl: zl, level: zerolog.InfoLevel}, "", 0)
	debug = log.New(levelWriter{zl: zl, level: zerolog.DebugLevel}, "", 0)
	return info, debug
}
