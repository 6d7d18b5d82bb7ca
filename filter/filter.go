// Package filter compiles boolean expressions that narrow a listing, e.g.
//
//	kind == "note" && date > 1700000000000
//	name contains "draft" || folder startsWith "/archive"
package filter

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/vinizap/foldnote/domain"
)

var ErrInvalid = errors.New("invalid filter expression")

// env is the set of names an expression can refer to.
type env struct {
	Kind   string `expr:"kind"`
	ID     string `expr:"id"`
	Name   string `expr:"name"`
	Date   int64  `expr:"date"`
	Slug   string `expr:"slug"`
	Text   string `expr:"text"`
	Folder string `expr:"folder"`
}

type Filter struct {
	source  string
	program *vm.Program
}

// Compile type-checks source against the item fields. The expression must
// evaluate to a bool.
func Compile(source string) (*Filter, error) {
	program, err := expr.Compile(source, expr.Env(env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &Filter{source: source, program: program}, nil
}

func (f *Filter) String() string { return f.source }

func (f *Filter) Match(it domain.Item) (bool, error) {
	out, err := expr.Run(f.program, env{
		Kind:   string(it.Kind),
		ID:     it.ID,
		Name:   it.Name,
		Date:   it.Date,
		Slug:   it.Slug,
		Text:   it.Text,
		Folder: it.Folder,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", f.String(), err)
	}
	ok, _ := out.(bool)
	return ok, nil
}
