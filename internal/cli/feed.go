package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/spf13/cobra"

	"github.com/provenly/signalguard/internal/model"
)

var (
	feedTimeout time.Duration
	feedMax     int
	feedVerify  bool
	feedOutJSON string
)

// feedCmd represents the feed command
var feedCmd = &cobra.Command{
	Use:   "feed <feed-url>",
	Short: "Extract candidate signals from an RSS/Atom feed",
	Long: `Feed parses an RSS or Atom feed, keeps the items whose titles look like
business-event signals (funding, acquisition, hiring, leadership, ...),
and emits one VerifySignalInput JSON object per line, ready for the
batch command. With --verify each candidate is verified immediately.

Example:
  signalguard feed https://news.example.com/rss.xml --out signals.jsonl
  signalguard feed https://news.example.com/rss.xml --verify`,
	Args: cobra.ExactArgs(1),
	RunE: runFeed,
}

func init() {
	rootCmd.AddCommand(feedCmd)

	feedCmd.Flags().DurationVar(&feedTimeout, "timeout", 2*time.Minute, "feed fetch timeout (per item when verifying)")
	feedCmd.Flags().IntVar(&feedMax, "max", 20, "max candidate signals to emit")
	feedCmd.Flags().BoolVar(&feedVerify, "verify", false, "verify each candidate instead of just emitting it")
	feedCmd.Flags().StringVar(&feedOutJSON, "out", "", "output JSONL path (default stdout)")
}

// signalKeywords maps title keywords to signal types, checked in order.
var signalKeywords = []struct {
	signalType string
	words      []string
}{
	{"funding", []string{"raises", "raised", "funding", "series a", "series b", "series c", "seed round", "investment round"}},
	{"acquisition", []string{"acquires", "acquired", "acquisition", "buys", "to acquire"}},
	{"merger", []string{"merges with", "merger"}},
	{"ipo", []string{"ipo", "goes public", "public offering"}},
	{"hiring", []string{"hiring", "to hire", "new jobs", "headcount"}},
	{"layoffs", []string{"layoffs", "lays off", "job cuts"}},
	{"leadership", []string{"appoints", "names new", "new ceo", "new cfo", "new cto", "steps down", "joins as"}},
	{"partnership", []string{"partners with", "partnership", "teams up"}},
	{"product_launch", []string{"launches", "unveils", "introduces"}},
	{"expansion", []string{"expands", "opens office", "expansion"}},
}

// companyRe captures a leading run of capitalized words, the usual
// headline position for the acting company.
var companyRe = regexp.MustCompile(`^([A-Z][\w&.-]*(?:\s+[A-Z][\w&.-]*){0,3})`)

func runFeed(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), feedTimeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.UserAgent = "SignalGuard/0.2 (+https://github.com/provenly/signalguard)"
	feed, err := parser.ParseURLWithContext(args[0], ctx)
	if err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}

	var candidates []model.VerifySignalInput
	for _, item := range feed.Items {
		if len(candidates) >= feedMax {
			break
		}
		signalType, ok := detectSignalType(item.Title)
		if !ok {
			continue
		}
		candidates = append(candidates, feedCandidate(feed, item, signalType))
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Feed %q: %d item(s), %d candidate signal(s)\n",
			feed.Title, len(feed.Items), len(candidates))
	}

	if feedVerify {
		return verifyCandidates(candidates)
	}
	return emitCandidates(candidates)
}

func detectSignalType(title string) (string, bool) {
	lower := strings.ToLower(title)
	for _, entry := range signalKeywords {
		for _, word := range entry.words {
			if strings.Contains(lower, word) {
				return entry.signalType, true
			}
		}
	}
	return "", false
}

func feedCandidate(feed *gofeed.Feed, item *gofeed.Item, signalType string) model.VerifySignalInput {
	company := ""
	if m := companyRe.FindStringSubmatch(item.Title); m != nil {
		company = strings.TrimSpace(m[1])
	}

	pubDate := ""
	if item.PublishedParsed != nil {
		pubDate = item.PublishedParsed.Format(time.RFC3339)
	}

	return model.VerifySignalInput{
		Company: company,
		RawSignal: model.RawSignal{
			Type:    signalType,
			Details: item.Title,
		},
		RSSItem: model.RSSItem{
			Title:          item.Title,
			Link:           item.Link,
			Content:        item.Content,
			ContentSnippet: item.Description,
			PubDate:        pubDate,
			SourceName:     feed.Title,
		},
	}
}

func emitCandidates(candidates []model.VerifySignalInput) error {
	out := os.Stdout
	if feedOutJSON != "" {
		f, err := os.Create(feedOutJSON)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	w := bufio.NewWriter(out)
	defer func() { _ = w.Flush() }()

	for _, c := range candidates {
		line, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal candidate: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write candidate: %w", err)
		}
	}
	return nil
}

func verifyCandidates(candidates []model.VerifySignalInput) error {
	p, err := buildPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	for _, c := range candidates {
		if c.Company == "" {
			fmt.Fprintf(os.Stderr, "skipped (no company): %s\n", c.RSSItem.Title)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), feedTimeout)
		result := p.VerifySignal(ctx, c)
		cancel()

		if err := writeResultJSON(result, ""); err != nil {
			return err
		}
	}
	return nil
}
