package console

import (
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"
)

// Handler executes one shell command. Returning ErrQuit ends the shell.
type Handler func(args []string) error

var ErrQuit = errors.New("quit")

// Shell reads commands from the terminal and dispatches them by their first
// word until quit, EOF or interrupt.
type Shell struct {
	prompt   string
	commands map[string]Handler
	usage    map[string]string
}

func NewShell(prompt string) *Shell {
	return &Shell{
		prompt:   prompt,
		commands: make(map[string]Handler),
		usage:    make(map[string]string),
	}
}

func (s *Shell) Handle(name, usage string, h Handler) {
	s.commands[name] = h
	s.usage[name] = usage
}

func (s *Shell) completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(s.commands))
	for name := range s.commands {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

func (s *Shell) Run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt,
		AutoComplete:    s.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		err = s.Exec(line)
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			Errorf("%s", err)
		}
	}
}

// Exec runs a single command line.
func (s *Shell) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	if fields[0] == "help" {
		names := make([]string, 0, len(s.usage))
		for name := range s.usage {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			Printf("%s\t%s\n", Bold(name), s.usage[name])
		}
		return nil
	}
	h, ok := s.commands[fields[0]]
	if !ok {
		Warnf("unknown command %s, try help", Yellow(fields[0]))
		return nil
	}
	return h(fields[1:])
}
