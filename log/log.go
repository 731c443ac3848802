/**
 * Tenta Captive Portal
 *
 *    Copyright 2018 Tenta, LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * For any questions, please contact developer@tenta.io
 *
 * log.go: Helper functions for logging
 */

package log

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// EventualLogger -- buffers log entries whose usefulness cannot be determined
// at creation time (per-query traces that only matter if the query goes sideways)
type EventualLogger []string

// Queuef -- buffers the interpreted message to be written later
func (l *EventualLogger) Queuef(format string, args ...interface{}) {
	interpreted := fmt.Sprintf(format, args...)
	lines := strings.Split(interpreted, "\n")
	if *l == nil {
		*l = make(EventualLogger, 0)
	}
	for _, line := range lines {
		*l = append(*l, fmt.Sprintf("[%s]%s", time.Now().Format("15:04:05.000"), line))
	}
}

// Flush -- writes out everything from buffer
func (l *EventualLogger) Flush(target *logrus.Entry) {
	for _, e := range *l {
		target.Debug(e)
	}
}

var log *logrus.Logger = logrus.New()

func init() {
	log.Level = logrus.PanicLevel
	log.Out = colorable.NewColorableStdout()
	formatter := &prefixed.TextFormatter{ForceColors: true, ForceFormatting: true}
	formatter.SetColorScheme(&prefixed.ColorScheme{DebugLevelStyle: "green+b", InfoLevelStyle: "green+h"})
	log.Formatter = formatter
}

func SetLogLevel(lvl logrus.Level) {
	log.Level = lvl
}

func GetLogger(pkg string) *logrus.Entry {
	return log.WithField("prefix", pkg)
}
