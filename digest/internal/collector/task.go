package collector

import (
	"fmt"
	"strings"

	"github.com/nori0724/techdigest/digest/internal/config"
	"github.com/nori0724/techdigest/digest/internal/fetch"
	"github.com/nori0724/techdigest/digest/internal/queries"
)

// Task is one planned fetch against one source.
type Task struct {
	Source  config.Source
	Request fetch.Request
}

const directPrompt = `Fetch the page and extract the latest technical articles.
Respond with JSON only: {"articles": [{"url", "title", "summary", "publishedAt", "dateMetaContent"}]}.
Include publishedAt when the page shows one, dateMetaContent for relative phrases like "3 hours ago".`

const searchPrompt = `Search the web for recent technical articles matching the query.
Respond with JSON only: {"articles": [{"url", "title", "summary", "publishedAt", "dateMetaContent"}]}.
Use the search result snippet date text as dateMetaContent.`

const twitterPrompt = `Search recent posts from the listed accounts matching the keywords.
Respond with JSON only: {"articles": [{"url", "title", "summary", "publishedAt"}]}.
Use the linked article URL when a post links one, else the post URL.`

const repairPrompt = `The previous response could not be parsed as JSON.
Reformat the following content as strict JSON, nothing else, using the shape
{"articles": [{"url", "title", "summary", "publishedAt", "dateMetaContent"}]}:`

// BuildTasks plans one task per enabled source. Allocated queries feed
// the search-type sources; withinDays > 0 appends a recency
// restriction to the prompt rather than the query string.
func BuildTasks(sources []config.Source, allocated map[string][]queries.Query, withinDays int) []Task {
	tasks := make([]Task, 0, len(sources))
	for _, s := range sources {
		keywords := queries.Keywords(allocated[s.ID])
		req := fetch.Request{
			SourceID: s.ID,
			Tier:     s.Tier,
			Method:   s.CollectMethod,
		}
		switch {
		case s.CollectMethod == fetch.MethodDirectFetch:
			req.Target = s.URL
			req.Prompt = withLimits(directPrompt, s.MaxArticles, withinDays)
		case s.IsTwitter():
			req.Target = twitterQuery(s.Accounts, keywords)
			req.Prompt = withLimits(twitterPrompt, s.MaxArticles, withinDays)
		default:
			req.Target = strings.TrimSpace(s.Query + " " + strings.Join(keywords, " "))
			req.Prompt = withLimits(searchPrompt, s.MaxArticles, withinDays)
		}
		tasks = append(tasks, Task{Source: s, Request: req})
	}
	return tasks
}

// twitterQuery builds `(from:@a OR from:@b) (kw1 OR kw2)`. Without
// keywords only the account clause is emitted.
func twitterQuery(accounts, keywords []string) string {
	froms := make([]string, len(accounts))
	for i, a := range accounts {
		froms[i] = "from:" + a
	}
	q := "(" + strings.Join(froms, " OR ") + ")"
	if len(keywords) > 0 {
		q += " (" + strings.Join(keywords, " OR ") + ")"
	}
	return q
}

func withLimits(prompt string, maxArticles, withinDays int) string {
	prompt += fmt.Sprintf("\nReturn at most %d articles.", maxArticles)
	if withinDays > 0 {
		prompt += fmt.Sprintf("\nOnly include articles published within the last %d days.", withinDays)
	}
	return prompt
}
