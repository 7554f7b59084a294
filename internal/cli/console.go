package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console serialises operator input. One goroutine reads lines from the
// input; prompts and key watchers take turns consuming them.
type Console struct {
	out   io.Writer
	lines chan string
}

// NewConsole starts reading lines from in. The channel closes when in is
// exhausted.
func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{out: out, lines: make(chan string)}
	go func() {
		defer close(c.lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			c.lines <- scanner.Text()
		}
	}()
	return c
}

// Printf writes to the console output.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Prompt prints msg and waits for the next line, trimmed. It returns
// io.EOF once input is exhausted.
func (c *Console) Prompt(ctx context.Context, msg string) (string, error) {
	fmt.Fprint(c.out, msg)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

// Confirm asks a y/n question. Anything but y or yes is no.
func (c *Console) Confirm(ctx context.Context, msg string) (bool, error) {
	answer, err := c.Prompt(ctx, msg+" (y/n): ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// WatchKey consumes input lines until one equals key, then closes stop.
// release ends the watch and must be called before the next Prompt.
func (c *Console) WatchKey(key string) (stop <-chan struct{}, release func()) {
	stopCh := make(chan struct{})
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case line, ok := <-c.lines:
				if !ok {
					return
				}
				if strings.EqualFold(strings.TrimSpace(line), key) {
					close(stopCh)
					return
				}
			}
		}
	}()

	var once sync.Once
	return stopCh, func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
