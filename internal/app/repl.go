package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/peterh/liner"
	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
	"github.com/vk/notegrid/internal/ctxlog"
	"github.com/vk/notegrid/internal/docfile"
)

const (
	promptMain = "nb> "
	promptCont = "... "

	replHelp = `Each entry is appended as a code cell and evaluated.
Commands:
  :list              show every cell
  :show <id>         show one cell and its source
  :edit <id> <code>  replace a cell's source
  :run <id>          re-run a code cell
  :rerun             re-run the whole document
  :delete <id>       delete a cell
  :declare <code>    append a declaration cell
  :note <text>       append a prose cell
  :save [path]       write the document
  :quit              exit`
)

// Prompter reads lines from an interactive terminal. *liner.State
// implements it.
type Prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Repl reads cells from p until EOF or :quit, evaluating the document after
// every change.
func (a *App) Repl(ctx context.Context, p Prompter) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if err := a.Load(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.outW, "notegrid REPL. Ctrl+D exits, :help lists commands.")

	for {
		src, ok := readEntry(p)
		if !ok {
			fmt.Fprintln(a.outW)
			return nil
		}
		entry := strings.TrimSpace(src)
		if entry == "" {
			continue
		}
		p.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if strings.HasPrefix(entry, ":") {
			quit, err := a.replCommand(ctx, entry)
			if err != nil {
				fmt.Fprintf(a.outW, "error: %s\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		id, err := a.nb.Append(cell.Code, src)
		if err != nil {
			fmt.Fprintf(a.outW, "error: %s\n", err)
			continue
		}
		if err := a.show(ctx, id, false); err != nil {
			return err
		}
	}
}

func (a *App) replCommand(ctx context.Context, entry string) (bool, error) {
	name, rest, _ := strings.Cut(entry, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case ":quit", ":q":
		return true, nil
	case ":help":
		fmt.Fprintln(a.outW, replHelp)
	case ":list":
		if err := a.nb.Settle(ctx); err != nil {
			return false, err
		}
		writeSnapshot(a.outW, a.nb.Snapshot())
	case ":show":
		id, err := cellid.Parse(rest)
		if err != nil {
			return false, err
		}
		return false, a.show(ctx, id, true)
	case ":edit":
		idStr, code, _ := strings.Cut(rest, " ")
		id, err := cellid.Parse(idStr)
		if err != nil {
			return false, err
		}
		if err := a.nb.Update(id, code); err != nil {
			return false, err
		}
		return false, a.show(ctx, id, false)
	case ":run":
		id, err := cellid.Parse(rest)
		if err != nil {
			return false, err
		}
		if err := a.nb.Rerun(id); err != nil {
			return false, err
		}
		return false, a.show(ctx, id, false)
	case ":rerun":
		a.nb.RerunAll()
		if err := a.nb.Settle(ctx); err != nil {
			return false, err
		}
		writeSnapshot(a.outW, a.nb.Snapshot())
	case ":delete":
		id, err := cellid.Parse(rest)
		if err != nil {
			return false, err
		}
		return false, a.nb.Delete(id)
	case ":declare":
		id, err := a.nb.Append(cell.Declaration, rest)
		if err != nil {
			return false, err
		}
		return false, a.show(ctx, id, false)
	case ":note":
		_, err := a.nb.Append(cell.Prose, rest)
		return false, err
	case ":save":
		path := rest
		if path == "" {
			path = a.config.DocumentPath
		}
		if path == "" {
			return false, errors.New("usage: :save <path>")
		}
		if err := docfile.Save(ctx, path, a.nb.Cells()); err != nil {
			return false, err
		}
		fmt.Fprintf(a.outW, "saved %s\n", path)
	default:
		return false, fmt.Errorf("unknown command %s, type :help", name)
	}
	return false, nil
}

// show settles the notebook and prints one cell.
func (a *App) show(ctx context.Context, id cellid.ID, withSource bool) error {
	if err := a.nb.Settle(ctx); err != nil {
		return err
	}
	v, err := a.nb.Cell(id)
	if err != nil {
		return err
	}
	if v.Kind != cell.Code {
		fmt.Fprintf(a.outW, "%s %s\n", v.ID, v.Kind)
		if v.Err != nil {
			fmt.Fprintf(a.outW, "  error: %s\n", indent(v.Err.Error()))
		}
	} else {
		writeCell(a.outW, v)
	}
	if withSource {
		fmt.Fprintf(a.outW, "  ---\n  %s\n", indent(strings.TrimRight(v.Source, "\n")))
	}
	return nil
}

// readEntry keeps prompting while the HCL typed so far leaves a block,
// bracket, heredoc or interpolation open. ok is false at EOF.
func readEntry(p Prompter) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := p.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if !incomplete(b.String()) {
			return b.String(), true
		}
	}
}

func incomplete(src string) bool {
	if strings.HasPrefix(strings.TrimSpace(src), ":") {
		return false
	}
	tokens, _ := hclsyntax.LexConfig([]byte(src), "repl", hcl.InitialPos)
	depth := 0
	for _, tok := range tokens {
		switch tok.Type {
		case hclsyntax.TokenOBrace, hclsyntax.TokenOBrack, hclsyntax.TokenOParen,
			hclsyntax.TokenOHeredoc, hclsyntax.TokenTemplateInterp, hclsyntax.TokenTemplateControl:
			depth++
		case hclsyntax.TokenCBrace, hclsyntax.TokenCBrack, hclsyntax.TokenCParen,
			hclsyntax.TokenCHeredoc, hclsyntax.TokenTemplateSeqEnd:
			depth--
		}
	}
	return depth > 0
}
