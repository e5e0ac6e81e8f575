package queue

import (
	"context"
	"time"

	"github.com/jjalkak/go-meme-service/internal/search"
)

// Searcher 队列任务使用的搜索
type Searcher interface {
	FindMemes(ctx context.Context, sentence string) search.Outcome
	Search(ctx context.Context, kw []string, n int) []search.SearchResult
}

// SearchHandler 把任务转成一次搜索
func SearchHandler(s Searcher) TaskHandler {
	return func(ctx context.Context, task *SearchTask) *SearchTaskResult {
		start := time.Now()
		res := &SearchTaskResult{
			TaskID:   task.ID,
			Sentence: task.Sentence,
			Results:  []search.SearchResult{},
			Keywords: []string{},
		}

		switch {
		case len(task.Keywords) > 0:
			n := task.Count
			if n <= 0 {
				n = search.DefaultCount
			}
			res.Results = s.Search(ctx, task.Keywords, n)
			res.Keywords = task.Keywords
			res.Phase = search.PhaseKeywords
		case task.Sentence != "":
			out := s.FindMemes(ctx, task.Sentence)
			res.Results = out.Results
			res.Keywords = out.Keywords.Korean
			res.Phase = out.Phase
		default:
			res.Error = "sentence or keywords required"
			res.Duration = time.Since(start).Milliseconds()
			return res
		}

		if len(res.Results) == 0 {
			res.SiteLinks = search.KoreanSiteLinks(search.DisplayKeywords(res.Keywords, task.Sentence))
		}
		res.Success = true
		res.Duration = time.Since(start).Milliseconds()
		return res
	}
}
