package extractor

import (
	"reflect"
	"testing"
)

const naverFixture = `<html><body>
<img src="https://search.pstatic.net/common/?src=https%3A%2F%2Fimg.example.com%2Fa.jpg&type=b400">
<script>var data = {"thumb":"https:\/\/img.example.com\/b.png","originalUrl":"https://img.example.com/c.gif"};</script>
<img src="https://ssl.pstatic.net/sstatic/logo.png">
<img src="https://static.naver.net/x.png">
<img src="https://cdn.example.com/d.webp?x=1&amp;y=2">
<div data-lazy-src="https://cdn.example.com/e.jpg"></div>
</body></html>`

func TestExtractImageURLs(t *testing.T) {
	t.Parallel()

	got := ExtractImageURLs(naverFixture)
	want := []string{
		"https://img.example.com/a.jpg",
		"https://img.example.com/b.png",
		"https://img.example.com/c.gif",
		"https://cdn.example.com/d.webp?x=1&y=2",
		"https://cdn.example.com/e.jpg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractImageURLs() =\n%v\nwant\n%v", got, want)
	}
}

func TestExtractImageURLsEmpty(t *testing.T) {
	t.Parallel()

	if got := ExtractImageURLs("<html><body>no images here</body></html>"); len(got) != 0 {
		t.Errorf("ExtractImageURLs() = %v, want empty", got)
	}
}

func TestResolveCandidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{
			name:   "pstatic wrapper is unwrapped",
			raw:    "https://search.pstatic.net/common/?src=http%3A%2F%2Fblog.example.com%2F1.png&type=a340",
			want:   "http://blog.example.com/1.png",
			wantOK: true,
		},
		{
			name:   "escaped slashes",
			raw:    `https:\/\/img.example.com\/z.jpg`,
			want:   "https://img.example.com/z.jpg",
			wantOK: true,
		},
		{
			name:   "unicode escaped slashes",
			raw:    `https://img.example.com/z.jpg`,
			want:   "https://img.example.com/z.jpg",
			wantOK: true,
		},
		{
			name:   "html entity",
			raw:    "https://img.example.com/z.jpg?a=1&amp;b=2",
			want:   "https://img.example.com/z.jpg?a=1&b=2",
			wantOK: true,
		},
		{name: "relative path rejected", raw: "/images/z.jpg"},
		{name: "site static rejected", raw: "https://static.naver.net/common/btn.png"},
		{name: "sprite rejected", raw: "https://ssl.pstatic.net/sstatic/search/sprite.png"},
		{
			name:   "wrapper without http falls through",
			raw:    "https://search.pstatic.net/common/?src=data%3Aimage",
			want:   "https://search.pstatic.net/common/?src=data%3Aimage",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolveCandidate(tt.raw)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("resolveCandidate(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRulesAreIndependent(t *testing.T) {
	t.Parallel()

	thumbOnly := New(nil, NewRegexRule("thumb", `"thumb":"([^"]+)"`))
	got := thumbOnly.ExtractImageURLs(naverFixture)
	want := []string{"https://img.example.com/b.png"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("thumb rule = %v, want %v", got, want)
	}

	lazy := NewAttrRule("data-lazy-src", "data-lazy-src")
	if got := lazy.Match(naverFixture); !reflect.DeepEqual(got, []string{"https://cdn.example.com/e.jpg"}) {
		t.Errorf("AttrRule.Match() = %v", got)
	}
}

func TestLazySrcOutsideDOM(t *testing.T) {
	t.Parallel()

	const lazy = `<img data-lazy-src="https://cdn.example.com/img?id=1">`

	tests := []struct {
		name string
		html string
		want []string
	}{
		{"script template", `<script>var tpl='` + lazy + `';</script>`, []string{"https://cdn.example.com/img?id=1"}},
		{"html comment", `<!-- ` + lazy + ` -->`, []string{"https://cdn.example.com/img?id=1"}},
		{"textarea", `<textarea>` + lazy + `</textarea>`, []string{"https://cdn.example.com/img?id=1"}},
		{"element", lazy, []string{"https://cdn.example.com/img?id=1"}},
		{
			"single quoted after text match",
			`<script>'` + lazy + `'</script><img data-lazy-src='https://cdn.example.com/q.png'>`,
			[]string{"https://cdn.example.com/img?id=1", "https://cdn.example.com/q.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractImageURLs(tt.html); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractImageURLs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNaverRulesOrder(t *testing.T) {
	t.Parallel()

	want := []string{"pstatic-src", "thumb", "originalUrl", "src-https", "data-lazy-src"}
	rules := NaverRules()
	if len(rules) != len(want) {
		t.Fatalf("len(NaverRules()) = %d, want %d", len(rules), len(want))
	}
	for i, r := range rules {
		if r.Name() != want[i] {
			t.Errorf("rule %d = %q, want %q", i, r.Name(), want[i])
		}
	}
}

func TestSanitizeCaption(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "월요일 출근하기 싫어", "월요일 출근하기 싫어"},
		{"tags stripped", "<b>월요일</b> 출근", "월요일 출근"},
		{"whitespace collapsed", "  퇴근하고\n\t싶다  ", "퇴근하고 싶다"},
		{"entities kept as text", "Tom &amp; Jerry", "Tom & Jerry"},
		{"script dropped", "<script>alert(1)</script>배고파", "배고파"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeCaption(tt.input); got != tt.want {
				t.Errorf("SanitizeCaption(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
