// Package procutil prepares child processes launched by hotkey actions so
// they run without a console window and die with their timeout.
package procutil
