/*
Package xlog provides a minimal Logger interface for controlling debug
output. The standard log.Logger type satisfies the interface; a nil
Logger disables output entirely, without formatting cost at the call
site. The recode engines expose a Logger knob so span accounting can
be switched on for one engine without touching global state.
*/
package xlog

import "fmt"

// Logger is the interface debug output is written to. The log.Logger
// type supports this interface.
type Logger interface {
	Output(calldepth int, s string) error
}

// Print outputs the arguments using the logger. If the logger is nil
// nothing will be printed.
func Print(l Logger, v ...interface{}) {
	if l != nil {
		l.Output(2, fmt.Sprint(v...))
	}
}

// Printf prints the arguments using the format string. If the logger
// argument is nil nothing will be printed.
func Printf(l Logger, format string, v ...interface{}) {
	if l != nil {
		l.Output(2, fmt.Sprintf(format, v...))
	}
}

// Println prints the arguments and adds a newline. If the logger
// argument is nil nothing will be printed.
func Println(l Logger, v ...interface{}) {
	if l != nil {
		l.Output(2, fmt.Sprintln(v...))
	}
}
