// Package output provides context-aware output for the savesync CLI.
// Stdout is used for primary data output (tables, JSON, identities).
// Stderr (via log package) is used for diagnostics.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/syncengine"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/ui/styles"
)

type ctxKey struct{}

// Printer writes primary output to stdout. It is safe for concurrent use so
// notices raised from background saves do not interleave with tables.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// New creates a new Printer writing to the given writer.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// WithPrinter attaches a Printer to the context.
func WithPrinter(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, ctxKey{}, New(w))
}

// FromContext retrieves the Printer from context.
// Returns a Printer writing to os.Stdout if none is attached.
func FromContext(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stdout)
}

// Print writes output without a newline.
func (p *Printer) Print(a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.w, a...)
}

// Printf writes formatted output.
func (p *Printer) Printf(format string, a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, a...)
}

// Println writes a line of output.
func (p *Printer) Println(a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, a...)
}

// JSON writes v as indented JSON followed by a newline.
func (p *Printer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = fmt.Fprintln(p.w, string(data))
	return err
}

// Check writes one diagnostic line: a status symbol and a message.
func (p *Printer) Check(ok bool, format string, a ...any) {
	sym := styles.SuccessStyle.Render(styles.SymbolOK)
	if !ok {
		sym = styles.ErrorStyle.Render(styles.SymbolFail)
	}
	p.Printf("%s %s\n", sym, fmt.Sprintf(format, a...))
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Notifier prints sync notices as styled lines.
type Notifier struct {
	p *Printer
}

var _ syncengine.Notifier = Notifier{}

// NewNotifier returns a Notifier writing through p.
func NewNotifier(p *Printer) Notifier {
	return Notifier{p: p}
}

// Notify implements syncengine.Notifier.
func (n Notifier) Notify(identity string, notice syncengine.Notice) {
	n.p.Println(styles.FormatNotice(notice))
}
