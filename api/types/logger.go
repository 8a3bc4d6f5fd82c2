/*
 * Copyright 2024 The AspectGo Authors.
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
 */

package types

import "github.com/sirupsen/logrus"

// Logger is the minimal logging interface of the core. The proxy engine
// logs only non-fatal conditions, such as a target-source release failure
// that must not mask the call result.
type Logger interface {
	Printf(format string, v ...interface{})
}

// DefaultLogger returns a Logger backed by the standard logrus logger.
func DefaultLogger() Logger {
	return logrus.StandardLogger()
}

func NewLogger(custom Logger) Logger {
	if custom != nil {
		return custom
	}
	return DefaultLogger()
}
