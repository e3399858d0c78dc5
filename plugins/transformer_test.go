package plugins

import (
	"errors"
	"testing"

	"github.com/bawdo/relq/model"
	"github.com/bawdo/relq/nodes"
	"github.com/bawdo/relq/typemap"
)

type recordingRoot struct {
	preds []nodes.Node
}

func (r *recordingRoot) Entity() *model.EntityType      { return nil }
func (r *recordingRoot) Table() *nodes.TableRef         { return nil }
func (r *recordingRoot) Factory() *typemap.Factory      { return nil }
func (r *recordingRoot) ApplyPredicate(pred nodes.Node) { r.preds = append(r.preds, pred) }

func TestTransformerFuncDelegates(t *testing.T) {
	t.Parallel()
	pred := nodes.NewFragment("1 = 1")
	tr := TransformerFunc(func(root RootSelect) error {
		root.ApplyPredicate(pred)
		return nil
	})

	root := &recordingRoot{}
	if err := tr.TransformRoot(root); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(root.preds) != 1 || root.preds[0] != pred {
		t.Errorf("expected the predicate to be applied once, got %v", root.preds)
	}
}

func TestTransformerFuncPropagatesError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	tr := TransformerFunc(func(RootSelect) error { return boom })
	if err := tr.TransformRoot(&recordingRoot{}); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}
