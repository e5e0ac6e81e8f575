package queue

import (
	"context"
	"testing"

	"github.com/jjalkak/go-meme-service/internal/keywords"
	"github.com/jjalkak/go-meme-service/internal/search"
)

type stubSearcher struct {
	found []search.SearchResult
	kw    []string
}

func (s *stubSearcher) FindMemes(context.Context, string) search.Outcome {
	return search.Outcome{Results: s.found, Keywords: keywords.Set{Korean: []string{"출근"}}, Phase: search.PhaseKeywords}
}

func (s *stubSearcher) Search(_ context.Context, kw []string, _ int) []search.SearchResult {
	s.kw = kw
	return s.found
}

func TestSearchHandler(t *testing.T) {
	t.Parallel()

	hit := []search.SearchResult{{ID: "a", OriginalURL: "https://img.example.com/a.jpg"}}

	tests := []struct {
		name        string
		found       []search.SearchResult
		task        SearchTask
		wantSuccess bool
		wantLinks   int
		wantPhase   search.Phase
	}{
		{"sentence", hit, SearchTask{ID: "1", Sentence: "월요일"}, true, 0, search.PhaseKeywords},
		{"keywords", hit, SearchTask{ID: "2", Keywords: []string{"퇴근"}}, true, 0, search.PhaseKeywords},
		{"nothing found", nil, SearchTask{ID: "3", Sentence: "없음"}, true, 4, search.PhaseKeywords},
		{"empty task", hit, SearchTask{ID: "4"}, false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := SearchHandler(&stubSearcher{found: tt.found})(context.Background(), &tt.task)
			if res.TaskID != tt.task.ID {
				t.Errorf("TaskID = %q", res.TaskID)
			}
			if res.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v (error %q)", res.Success, tt.wantSuccess, res.Error)
			}
			if len(res.SiteLinks) != tt.wantLinks {
				t.Errorf("len(SiteLinks) = %d, want %d", len(res.SiteLinks), tt.wantLinks)
			}
			if res.Phase != tt.wantPhase {
				t.Errorf("Phase = %q, want %q", res.Phase, tt.wantPhase)
			}
		})
	}
}
