package keywords

import "errors"

var (
	ErrNoChoices  = errors.New("completion returned no choices")
	ErrNoJSON     = errors.New("reply contains no json object")
	ErrNoKeywords = errors.New("reply has no korean keywords")
)
