package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"io"
	"os"
	"os/exec"
	"runtime/debug"
	"strings"
)

// supervisor re-emits the JSON log stream of a child process and collects
// the plain-text panic trace when the child crashes.
type supervisor struct {
	ctcLogger  zerolog.Logger
	out        io.Writer
	panicTrace strings.Builder
	panicking  bool
}

// WrapProcess runs the executable with its stderr piped through the supervisor
// and exits with the child's exit code.
func WrapProcess(executable string, arg ...string) {
	s := &supervisor{ctcLogger: NewLogger("Supervisor"), out: os.Stdout}
	defer s.recoverPanic()

	r, w, err := os.Pipe()
	if err != nil {
		s.ctcLogger.Fatal().Err(err).Msg("Could not create pipe for logs")
		os.Exit(1)
	}

	cmd := exec.Command(executable, arg...)
	cmd.Stderr = w
	if err = cmd.Start(); err != nil {
		s.ctcLogger.Fatal().Err(err).Msg("Could not launch decoding service")
		os.Exit(1)
	}

	exitCodeCh := make(chan int)
	linesCh := make(chan []byte)
	go s.wait(cmd, exitCodeCh)
	go s.scan(r, linesCh)

	for {
		select {
		case exitCode := <-exitCodeCh:
			s.exit(exitCode)
		case line := <-linesCh:
			s.handleLine(line)
		}
	}
}

func (s *supervisor) wait(cmd *exec.Cmd, exitCodeCh chan<- int) {
	defer s.recoverPanic()
	err := cmd.Wait()
	if err == nil {
		exitCodeCh <- 0
		return
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		exitCodeCh <- 1
		return
	}
	exitCodeCh <- exitErr.ExitCode()
}

func (s *supervisor) scan(r io.Reader, linesCh chan<- []byte) {
	defer s.recoverPanic()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		linesCh <- line
	}
	if err := scanner.Err(); err != nil {
		s.ctcLogger.Fatal().Err(err).Msg("Error scanning piped stderr of the decoding service")
		os.Exit(1)
	}
}

func (s *supervisor) exit(exitCode int) {
	if exitCode == 0 {
		s.ctcLogger.Info().Msg("Exited with code 0")
	} else {
		s.ctcLogger.
			Fatal().
			Err(errors.New(s.panicTrace.String())).
			Msgf("Panicked and exited with code: %d", exitCode)
	}
	os.Exit(exitCode)
}

// handleLine forwards JSON lines as is; once a line starting with "panic" is
// seen every following line belongs to the trace.
func (s *supervisor) handleLine(line []byte) {
	text := string(line)
	if !s.panicking && strings.HasPrefix(text, "panic") {
		s.panicking = true
	}
	switch {
	case len(line) == 0:
	case s.panicking:
		s.panicTrace.WriteString(text)
		s.panicTrace.WriteByte('\n')
	case isJSON(line):
		fmt.Fprintln(s.out, text)
	default:
		s.ctcLogger.Error().Msgf("Got log line that is not JSON formatted: '%s'", text)
	}
}

func (s *supervisor) recoverPanic() {
	r := recover()
	if r == nil {
		return
	}
	s.ctcLogger.Fatal().
		Caller().
		Str("error", fmt.Sprint(r)).
		Str("stack_trace", string(debug.Stack())).
		Msg("Supervisor panicked and exited")
}

func isJSON(b []byte) bool {
	var js json.RawMessage
	err := json.Unmarshal(b, &js)
	return err == nil && js != nil
}
