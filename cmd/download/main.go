package download

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/urfave/cli/v2"

	"medorbis-gateway/manifest"
)

const defaultMaxDocuments = 50

var Flags = []cli.Flag{
	&cli.StringFlag{Name: "feed", Usage: "RSS or Atom feed of course announcements", Required: true, EnvVars: []string{"DOCUMENT_FEED_URL"}},
	&cli.StringFlag{Name: "data", Usage: "directory holding the manifest and embedding caches", Value: manifest.DefaultDataDirectory},
	&cli.StringFlag{Name: "department", Usage: "Department tag applied to every item"},
	&cli.StringFlag{Name: "year", Usage: "Year tag applied to every item"},
	&cli.StringFlag{Name: "semester", Usage: "Semester tag applied to every item"},
	&cli.IntFlag{Name: "max", Usage: "maximum number of new items to add", Value: defaultMaxDocuments},
}

// Tags are the academic fields stamped onto every document taken from one feed.
type Tags struct {
	Department string
	Year       string
	Semester   string
}

func Download(ctx *cli.Context) error {
	dataDirectory := ctx.String("data")
	manifestData, err := manifest.Load(dataDirectory)
	if err != nil {
		return fmt.Errorf("unexpected error reading document manifest: %w", err)
	}

	feedURL := ctx.String("feed")
	feed, err := gofeed.NewParser().ParseURLWithContext(feedURL, ctx.Context)
	if err != nil {
		return fmt.Errorf("failed to process feed from %s: %w", feedURL, err)
	}

	tags := Tags{
		Department: ctx.String("department"),
		Year:       ctx.String("year"),
		Semester:   ctx.String("semester"),
	}
	added := AddItems(manifestData, feed.Items, tags, ctx.Int("max"))
	manifestData.LastUpdated = feed.Updated

	if err := manifest.Update(dataDirectory, manifestData); err != nil {
		return fmt.Errorf("failed to write updated manifest: %w", err)
	}

	slog.InfoContext(ctx.Context, "feed downloaded",
		slog.String("feed", feedURL), slog.Int("added", added), slog.Int("documents", len(manifestData.Documents)))
	return nil
}

// AddItems records up to maxItems feed items that are not in the manifest yet and returns how
// many were added. Items without any text are skipped.
func AddItems(m *manifest.Manifest, items []*gofeed.Item, tags Tags, maxItems int) int {
	added := 0
	for _, item := range items {
		if added >= maxItems {
			break
		}

		id := DocumentID(item)
		if _, exists := m.Documents[id]; exists {
			slog.Debug("skipping existing item", slog.String("id", id), slog.String("title", item.Title))
			continue
		}

		content := PlainText(item.Content)
		if content == "" {
			content = PlainText(item.Description)
		}
		if content == "" {
			slog.Debug("skipping item without text", slog.String("title", item.Title))
			continue
		}

		m.Documents[id] = manifest.Document{
			ID:          id,
			Title:       item.Title,
			Description: PlainText(item.Description),
			Link:        item.Link,
			Published:   item.Published,
			Content:     content,
			Department:  tags.Department,
			Year:        tags.Year,
			Semester:    tags.Semester,
		}
		added++
	}
	return added
}

// DocumentID derives a stable, filename safe id from the item GUID, or its link when there is none.
func DocumentID(item *gofeed.Item) string {
	key := item.GUID
	if key == "" {
		key = item.Link
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// PlainText strips markup from feed HTML and collapses whitespace.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
