package lyrics

import "testing"

func TestParse(t *testing.T) {
	t.Run("TaggedLinesOnly", func(t *testing.T) {
		raw := "[ti:Song]\n[00:01.00]first\nno tag here\n\n[00:02.50]second\n[bad:tag]third"
		doc := Parse(raw)

		if doc.Len() != 2 {
			t.Fatalf("Expected 2 lines, got %d", doc.Len())
		}
		first, _ := doc.Line(0)
		if first.TimestampMs != 1000 || first.Text != "first" {
			t.Errorf("Unexpected first line: %+v", first)
		}
		second, _ := doc.Line(1)
		if second.TimestampMs != 2500 || second.Text != "second" {
			t.Errorf("Unexpected second line: %+v", second)
		}
	})

	t.Run("Timestamp", func(t *testing.T) {
		doc := Parse("[01:02.34]hello")
		line, ok := doc.Line(0)
		if !ok {
			t.Fatal("Expected one line")
		}
		if line.TimestampMs != 62340 {
			t.Errorf("Expected 62340, got %d", line.TimestampMs)
		}
	})

	t.Run("RoundsFraction", func(t *testing.T) {
		doc := Parse("[00:00.0005]x\n[00:01.2344]y")
		a, _ := doc.Line(0)
		b, _ := doc.Line(1)
		if a.TimestampMs != 1 {
			t.Errorf("Expected 1, got %d", a.TimestampMs)
		}
		if b.TimestampMs != 1234 {
			t.Errorf("Expected 1234, got %d", b.TimestampMs)
		}
	})

	t.Run("EmptyTextKept", func(t *testing.T) {
		doc := Parse("[00:05.00]\n[00:06.00]   ")
		if doc.Len() != 2 {
			t.Fatalf("Expected 2 lines, got %d", doc.Len())
		}
		for i := 0; i < doc.Len(); i++ {
			line, _ := doc.Line(i)
			if line.Text != "" {
				t.Errorf("Expected empty text at %d, got %q", i, line.Text)
			}
		}
	})

	t.Run("TextTrimmedAndTagsRemoved", func(t *testing.T) {
		doc := Parse("  [00:03.00]  hello world  ")
		line, _ := doc.Line(0)
		if line.Text != "hello world" {
			t.Errorf("Expected %q, got %q", "hello world", line.Text)
		}

		doc = Parse("[00:03.00][00:40.00]chorus")
		line, _ = doc.Line(0)
		if line.TimestampMs != 3000 {
			t.Errorf("Expected first tag to win, got %d", line.TimestampMs)
		}
		if line.Text != "chorus" {
			t.Errorf("Expected %q, got %q", "chorus", line.Text)
		}
	})

	t.Run("KeepsSourceOrder", func(t *testing.T) {
		doc := Parse("[00:10.00]b\n[00:05.00]a\n[00:10.00]c")
		want := []int64{10000, 5000, 10000}
		if doc.Len() != len(want) {
			t.Fatalf("Expected %d lines, got %d", len(want), doc.Len())
		}
		for i, ts := range want {
			line, _ := doc.Line(i)
			if line.TimestampMs != ts {
				t.Errorf("Line %d: expected %d, got %d", i, ts, line.TimestampMs)
			}
		}
	})

	t.Run("HTMLBreaks", func(t *testing.T) {
		doc := Parse("[00:01.00]one<br />[00:02.00]two<br>[00:03.00]three\r\n[00:04.00]four")
		if doc.Len() != 4 {
			t.Fatalf("Expected 4 lines, got %d", doc.Len())
		}
		line, _ := doc.Line(3)
		if line.Text != "four" {
			t.Errorf("Expected %q, got %q", "four", line.Text)
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		if !Parse("").Empty() {
			t.Error("Expected empty document")
		}
		if !Parse("just words\nand more").Empty() {
			t.Error("Expected empty document for untagged input")
		}
	})

	t.Run("LinesIsCopy", func(t *testing.T) {
		doc := Parse("[00:01.00]one")
		lines := doc.Lines()
		lines[0].Text = "changed"
		line, _ := doc.Line(0)
		if line.Text != "one" {
			t.Error("Expected document to be unaffected by edits to Lines()")
		}
	})
}

func TestResolve(t *testing.T) {
	doc := Parse("[00:01.00]a\n[00:02.00]b\n[00:03.00]c")

	tests := []struct {
		name    string
		queryMs int64
		index   int
		ok      bool
	}{
		{"BeforeFirst", 500, 0, false},
		{"ExactFirst", 1000, 0, true},
		{"Between", 2500, 1, true},
		{"ExactLast", 3000, 2, true},
		{"PastEnd", 999999, 2, true},
		{"Negative", -10, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, ok := Resolve(doc, tt.queryMs)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && index != tt.index {
				t.Errorf("Expected index %d, got %d", tt.index, index)
			}
		})
	}

	t.Run("EmptyDocument", func(t *testing.T) {
		if _, ok := Resolve(Document{}, 1000); ok {
			t.Error("Expected no line for empty document")
		}
	})

	t.Run("DuplicateTimestampsPickLast", func(t *testing.T) {
		dup := Parse("[00:01.00]a\n[00:02.00]b\n[00:02.00]c\n[00:05.00]d")
		index, ok := Resolve(dup, 2000)
		if !ok || index != 2 {
			t.Errorf("Expected index 2, got %d (ok=%v)", index, ok)
		}
	})

	t.Run("StableWithinInterval", func(t *testing.T) {
		for q := int64(2000); q < 3000; q += 37 {
			index, ok := Resolve(doc, q)
			if !ok || index != 1 {
				t.Fatalf("Query %d: expected index 1, got %d", q, index)
			}
		}
	})

	t.Run("BackwardSeek", func(t *testing.T) {
		if index, _ := Resolve(doc, 2900); index != 1 {
			t.Errorf("Expected 1, got %d", index)
		}
		if index, _ := Resolve(doc, 1100); index != 0 {
			t.Errorf("Expected 0 after seeking back, got %d", index)
		}
	})

	t.Run("UnsortedUsesLastQualifying", func(t *testing.T) {
		unsorted := Parse("[00:10.00]late\n[00:01.00]early\n[00:20.00]later")
		index, ok := Resolve(unsorted, 15000)
		if !ok || index != 1 {
			t.Errorf("Expected index 1, got %d (ok=%v)", index, ok)
		}
	})
}

func TestResolverUpdate(t *testing.T) {
	r := NewResolver(Parse("[00:01.00]a\n[00:02.00]b"))

	if _, ok, changed := r.Update(0); ok || changed {
		t.Errorf("Expected no line and no change, got ok=%v changed=%v", ok, changed)
	}
	if index, ok, changed := r.Update(1500); !ok || !changed || index != 0 {
		t.Errorf("Expected change to 0, got %d ok=%v changed=%v", index, ok, changed)
	}
	if _, _, changed := r.Update(1600); changed {
		t.Error("Expected no change within the same line")
	}
	if index, _, changed := r.Update(2100); !changed || index != 1 {
		t.Errorf("Expected change to 1, got %d changed=%v", index, changed)
	}
	if _, ok, changed := r.Update(100); ok || !changed {
		t.Errorf("Expected change to no line, got ok=%v changed=%v", ok, changed)
	}
	if _, ok := r.Current(); ok {
		t.Error("Expected Current to report no line")
	}
}
