package splitter

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"mixed scripts", "Hi!您好！", []string{"Hi!", "您好！"}},
		{"no punctuation", "hello world", []string{"hello world"}},
		{"consecutive marks", "What?!", []string{"What?", "!"}},
		{"cjk with space", "你好。 今天怎么样？", []string{"你好。", "今天怎么样？"}},
		{"trailing tail", "好的。那就明天见", []string{"好的。", "那就明天见"}},
		{"colons and semicolons", "First; second: third.", []string{"First;", "second:", "third."}},
		{"ellipsis and dash", "嗯…好吧—走", []string{"嗯…", "好吧—", "走"}},
		{"empty", "", nil},
		{"whitespace only", "  \n ", nil},
		{"only punctuation", "。。！", []string{"。", "。", "！"}},
	}

	for _, tc := range cases {
		got := Split(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: Split(%q) = %#v, want %#v", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestSplitReassembly(t *testing.T) {
	inputs := []string{
		"一。二？三！",
		"Hi!您好！",
		"No break at all",
		"Short.Then more;and more:done.",
	}
	for _, in := range inputs {
		segments := Split(in)
		if strings.Join(segments, "") != in {
			t.Fatalf("segments of %q do not reassemble: %#v", in, segments)
		}
		for _, seg := range segments {
			if strings.TrimSpace(seg) == "" {
				t.Fatalf("empty segment in split of %q: %#v", in, segments)
			}
		}
	}
}
