package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/mfroeh/vimgrep/regex"
)

var submatchColors = []*color.Color{
	color.New(color.FgRed),
	color.New(color.FgGreen),
	color.New(color.FgYellow),
	color.New(color.FgBlue),
	color.New(color.FgMagenta),
	color.New(color.FgCyan),
}

var headerColor = color.New(color.FgMagenta, color.Bold)

var cli struct {
	Pattern    string   `arg:"" name:"pattern" help:"Vim pattern to search for" type:"string"`
	Paths      []string `arg:"" optional:"" name:"path" help:"Paths to search" type:"path"`
	IgnoreCase bool     `short:"i" help:"Ignore case, like Vim's 'ignorecase'."`
	SmartCase  bool     `short:"S" help:"With --ignore-case, match case if the pattern has upper case letters, like Vim's 'smartcase'."`
	MaxCount   int      `short:"m" default:"-1" help:"Stop after this many matching lines per file (-1 for no limit)."`
	Jobs       int      `short:"j" default:"4" help:"Number of files searched in parallel."`
	Color      string   `enum:"auto,always,never" default:"auto" help:"When to highlight matches (auto, always, never)."`
	MaxSteps   int      `default:"0" help:"Give up on a file when one match attempt visits more automaton states (0 for no limit)."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("vimgrep"),
		kong.Description("Recursively searches the current directory for lines matching a Vim pattern."),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, "~/.vimgrep.json", ".vimgrep.json"),
	)

	switch cli.Color {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		color.NoColor = !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	re, err := regex.CompileFlags(cli.Pattern, regex.Flags{IgnoreCase: cli.IgnoreCase, SmartCase: cli.SmartCase})
	if err != nil {
		log.Fatalf("failed to build regex: %v", err)
	}
	re = re.WithMaxSteps(cli.MaxSteps)

	if len(cli.Paths) == 0 {
		cli.Paths = []string{"."}
	}

	s := newSearcher(re, cli.MaxCount)
	files := make(chan string)
	var wg sync.WaitGroup
	for _i := 0; _i < max(cli.Jobs, 1); _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range files {
				s.searchFile(path)
			}
		}()
	}

	for _, path := range cli.Paths {
		info, err := os.Stat(path)
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}

		if info.IsDir() {
			err = recursivelyListDir(path, files)
		} else {
			files <- path
		}

		if err != nil {
			log.Fatalf("%v", err)
		}
	}
	close(files)
	wg.Wait()

	switch {
	case s.failed:
		os.Exit(2)
	case !s.matched:
		os.Exit(1)
	}
}

func recursivelyListDir(path string, files chan<- string) error {
	return filepath.WalkDir(path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable entries are skipped, not fatal
			log.Printf("%s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}

		// follow symlinks; broken links and link cycles are skipped
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ELOOP) {
				return nil
			}
			return err
		}
		// symlink may resolve to a directory, in which case we just ignore it
		if info.IsDir() {
			return nil
		}

		files <- path
		return nil
	})
}

// searcher searches files with one compiled pattern shared by all workers.
type searcher struct {
	re       *regex.Regex
	maxCount int

	mu      sync.Mutex
	matched bool
	failed  bool
}

func newSearcher(re *regex.Regex, maxCount int) *searcher {
	return &searcher{re: re, maxCount: maxCount}
}

func (s *searcher) searchFile(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		s.report(path, "", err)
		return
	}
	// skip binary files
	if bytes.IndexByte(content[:min(len(content), 512)], 0) != -1 {
		return
	}

	out, err := formatMatches(s.re, regex.TextOf(content), s.maxCount)
	s.report(path, out, err)
}

func (s *searcher) report(path, out string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.failed = true
		log.Printf("%s: %v", path, err)
	}
	if out == "" {
		return
	}
	s.matched = true
	fmt.Println(headerColor.Sprint(path) + ":")
	fmt.Println(out)
}

// formatMatches renders every line holding the start of a match, matches highlighted.
// A match running over a newline pulls the following line into the same entry.
func formatMatches(re *regex.Regex, t regex.Text, maxLines int) (string, error) {
	matches, err := re.FindAll(t, -1)
	if err != nil && len(matches) == 0 {
		return "", err
	}

	out := strings.Builder{}
	lineNo, scanned := 1, 0
	lines := 0
	for i := 0; i < len(matches) && (maxLines < 0 || lines < maxLines); lines++ {
		start, end := lineBounds(t, matches[i].Span().Start)
		for ; scanned < start; scanned++ {
			if t.At(scanned) == '\n' {
				lineNo++
			}
		}

		j := i
		for j < len(matches) && matches[j].Span().Start <= end {
			if e := matches[j].Span().End; e > end {
				_, end = lineBounds(t, e)
			}
			j++
		}

		fmt.Fprintf(&out, "%d:", lineNo)
		lastMatchEnd := start
		for _, m := range matches[i:j] {
			out.WriteString(regex.Slice(t, lastMatchEnd, m.Span().Start))
			out.WriteString(formatMatch(t, m))
			lastMatchEnd = m.Span().End
		}
		out.WriteString(regex.Slice(t, lastMatchEnd, end))
		out.WriteByte('\n')
		i = j
	}
	return out.String(), err
}

// lineBounds returns the start of the line holding pos and the offset of its newline.
func lineBounds(t regex.Text, pos int) (int, int) {
	start := min(pos, t.Len())
	for start > 0 && t.At(start-1) != '\n' {
		start--
	}
	end := start
	for end < t.Len() && t.At(end) != '\n' {
		end++
	}
	if end < pos {
		end = pos
	}
	return start, end
}

func formatMatch(t regex.Text, m regex.Match) string {
	full := m.Span()
	if m.NumGroups() == 0 || m.NumGroups() >= len(submatchColors) {
		return submatchColors[0].Sprint(regex.Slice(t, full.Start, full.End))
	}

	out := strings.Builder{}
	off := full.Start
	for i := 1; i <= m.NumGroups(); i++ {
		sm, ok := m.Group(i)
		// nested or \zs-clipped groups keep the colour of the enclosing match
		if !ok || sm.Start < off || sm.End > full.End {
			continue
		}
		submatchColors[0].Fprint(&out, regex.Slice(t, off, sm.Start))
		submatchColors[i].Fprint(&out, regex.Slice(t, sm.Start, sm.End))
		off = sm.End
	}
	submatchColors[0].Fprint(&out, regex.Slice(t, off, full.End))
	return out.String()
}
