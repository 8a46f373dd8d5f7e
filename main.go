package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/pipe01/civmark/internal/compiler"
	"github.com/pipe01/civmark/internal/grammar"
	"github.com/pipe01/civmark/internal/lexer"
	"github.com/pipe01/civmark/internal/workspace"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("civmark.cli")

var (
	verbose     = kingpin.Flag("verbose", "Increase logging verbosity, can be repeated").Short('v').Counter()
	grammarPath = kingpin.Flag("grammar", "YAML or TOML file overriding the markup delimiters").Envar("CIVMARK_GRAMMAR").ExistingFile()

	buildCmd   = kingpin.Command("build", "Render notes to HTML files")
	outDir     = buildCmd.Flag("out-dir", "Folder to put generated files on").Short('o').Default(".").String()
	jobs       = buildCmd.Flag("jobs", "How many files to render at the same time").Short('j').Default("4").Int()
	watch      = buildCmd.Flag("watch", "Watch files for changes and render them again").Short('w').Bool()
	buildFiles = buildCmd.Arg("files", "List of notes to render").Required().ExistingFiles()

	splitCmd  = kingpin.Command("split", "Print the blocks a note would be stored as")
	splitJSON = splitCmd.Flag("json", "Print blocks as JSON rows with fresh ids").Bool()
	splitFile = splitCmd.Arg("file", "Note to split").Required().ExistingFile()

	structCmd    = kingpin.Command("struct", "Print the element tree of a note")
	noteID       = structCmd.Flag("note-id", "Id used to scope generated element ids").Default("0").Int()
	structFormat = structCmd.Flag("format", "Output encoding").Default(string(compiler.FormatJSON)).Enum(string(compiler.FormatJSON), string(compiler.FormatMsgpack))
	structFile   = structCmd.Arg("file", "Note to compile").Required().ExistingFile()

	tokensCmd  = kingpin.Command("tokens", "Dump the tokens of a note")
	tokensFile = tokensCmd.Arg("file", "Note to tokenize").Required().ExistingFile()
)

func main() {
	cmd := kingpin.Parse()

	commonlog.Configure(*verbose, nil)

	g := loadGrammar()
	wd, _ := os.Getwd()
	ws := workspace.New(wd, g)

	var err error

	switch cmd {
	case buildCmd.FullCommand():
		*outDir, _ = filepath.Abs(*outDir)

		if err = checkOutputNames(*buildFiles); err != nil {
			break
		}

		if *watch {
			err = watchFiles(ws)
		} else {
			err = buildAll(context.Background(), ws, *buildFiles)
		}

	case splitCmd.FullCommand():
		err = printBlocks(ws, *splitFile)

	case structCmd.FullCommand():
		err = printStruct(ws, *structFile)

	case tokensCmd.FullCommand():
		err = printTokens(g, *tokensFile)
	}

	if err != nil {
		kingpin.Fatalf("%s: %s", cmd, err)
	}
}

func loadGrammar() *grammar.Grammar {
	if *grammarPath == "" {
		return grammar.Default()
	}

	g, err := grammar.Load(*grammarPath)
	if err != nil {
		kingpin.Fatalf("load grammar: %s", err)
	}

	log.Infof("using grammar from %q", *grammarPath)
	return g
}

// buildAll renders every file, several at a time. The first failure cancels the files
// that haven't started yet.
func buildAll(ctx context.Context, ws *workspace.Workspace, files []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*jobs, 1))

	for _, fname := range files {
		fname := fname

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			_, err := buildFile(ws, fname)
			if err != nil {
				return fmt.Errorf("build %q: %w", fname, err)
			}

			return nil
		})
	}

	return g.Wait()
}

// noteName is the name a note's output file is derived from, see workspace.Note.
func noteName(fname string) string {
	base := filepath.Base(fname)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// checkOutputNames fails if two different notes would be rendered to the same file.
func checkOutputNames(files []string) error {
	seen := make(map[string]string, len(files))

	for _, fname := range files {
		fullPath, err := filepath.Abs(fname)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", fname, err)
		}

		name := noteName(fname)

		if prev, ok := seen[name]; ok && prev != fullPath {
			return fmt.Errorf("%q and %q would both be rendered to %s.html", prev, fullPath, name)
		}
		seen[name] = fullPath
	}

	return nil
}

func buildFile(ws *workspace.Workspace, fname string) (outPath string, err error) {
	note, err := ws.Load(fname)
	if err != nil {
		return "", err
	}

	outPath = filepath.Join(*outDir, note.Name+".html")

	outf, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := outf.Close(); cerr != nil && err == nil {
			outPath, err = "", fmt.Errorf("close output file: %w", cerr)
		}
	}()

	err = compiler.CompileTo(outf, note.Nodes)
	if err != nil {
		return "", fmt.Errorf("generate output: %w", err)
	}

	log.Infof("rendered %q to %q", fname, outPath)
	return outPath, nil
}

type blockRow struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Content  string `json:"content"`
}

func printBlocks(ws *workspace.Workspace, fname string) error {
	note, err := ws.Load(fname)
	if err != nil {
		return err
	}

	blocks := note.Blocks()

	if !*splitJSON {
		for i, b := range blocks {
			if i > 0 {
				fmt.Println()
			}
			fmt.Println(b)
		}
		return nil
	}

	rows := make([]blockRow, len(blocks))
	for i, b := range blocks {
		rows[i] = blockRow{
			ID:       uuid.NewString(),
			Position: i,
			Content:  b,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(rows)
}

func printStruct(ws *workspace.Workspace, fname string) error {
	note, err := ws.Load(fname)
	if err != nil {
		return err
	}

	elements, err := note.Elements(*noteID)
	if err != nil {
		return err
	}

	return compiler.EncodeElements(os.Stdout, elements, compiler.Format(*structFormat))
}

// printTokens only runs the lexer, so it also works on notes that fail to parse.
func printTokens(g *grammar.Grammar, fname string) error {
	data, err := os.ReadFile(fname)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	tks, err := lexer.New(data, fname, g).Collect()
	if err != nil {
		return fmt.Errorf("lex file: %w", err)
	}

	pos := color.New(color.Faint).SprintFunc()
	typ := color.New(color.FgCyan, color.Bold).SprintFunc()
	val := color.New(color.FgYellow).SprintFunc()

	for _, tk := range tks {
		line := fmt.Sprintf("%s\t%-22s %q", pos(tk.Start.String()), typ(tk.Type), tk.Raw)
		if tk.Value != "" {
			line += " " + val(tk.Value)
		}

		fmt.Println(line)
	}

	return nil
}

func watchFiles(ws *workspace.Workspace) error {
	watcher, err := NewWatcher(ws)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	for _, f := range *buildFiles {
		if _, err := buildFile(ws, f); err != nil {
			log.Errorf("failed to render %q: %s", f, err)
		}

		err = watcher.WatchFile(f)
		if err != nil {
			return fmt.Errorf("watch file %q: %w", f, err)
		}
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	log.Info("watching files for changes...")

	<-ch
	return watcher.Close()
}
