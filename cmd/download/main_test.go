package download

import (
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"

	"medorbis-gateway/manifest"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Faculty of Nursing announcements</title>
  <lastBuildDate>Mon, 06 Jan 2025 09:00:00 GMT</lastBuildDate>
  <item>
    <title>Exam timetable</title>
    <link>https://uni.example/news/exams</link>
    <guid>news-1</guid>
    <description><![CDATA[<p>The <b>anatomy</b> exam is on June 3.</p>]]></description>
  </item>
  <item>
    <title>Empty item</title>
    <link>https://uni.example/news/empty</link>
    <guid>news-2</guid>
  </item>
  <item>
    <title>Clinical placements</title>
    <link>https://uni.example/news/placements</link>
    <description>Placements start in week 4.</description>
  </item>
</channel>
</rss>`

func parseFeed(t *testing.T) *gofeed.Feed {
	t.Helper()
	feed, err := gofeed.NewParser().ParseString(testFeed)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	return feed
}

func TestAddItems(t *testing.T) {
	t.Parallel()

	feed := parseFeed(t)
	m := &manifest.Manifest{Documents: map[string]manifest.Document{}}
	tags := Tags{Department: "Nursing", Year: "3"}

	if added := AddItems(m, feed.Items, tags, 10); added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}

	exam := m.Documents[DocumentID(feed.Items[0])]
	if exam.Content != "The anatomy exam is on June 3." {
		t.Errorf("Content = %q", exam.Content)
	}
	if exam.Department != "Nursing" || exam.Year != "3" || exam.Semester != "" {
		t.Errorf("tags = %+v", exam)
	}

	if added := AddItems(m, feed.Items, tags, 10); added != 0 {
		t.Errorf("second run added = %d, want 0", added)
	}
}

func TestAddItemsRespectsLimit(t *testing.T) {
	t.Parallel()

	feed := parseFeed(t)
	m := &manifest.Manifest{Documents: map[string]manifest.Document{}}
	if added := AddItems(m, feed.Items, Tags{}, 1); added != 1 || len(m.Documents) != 1 {
		t.Errorf("added = %d, documents = %d", added, len(m.Documents))
	}
}

func TestDocumentID(t *testing.T) {
	t.Parallel()

	withGUID := &gofeed.Item{GUID: "https://uni.example/?p=1", Link: "https://uni.example/a"}
	withoutGUID := &gofeed.Item{Link: "https://uni.example/a"}

	id := DocumentID(withGUID)
	if id != DocumentID(&gofeed.Item{GUID: "https://uni.example/?p=1"}) {
		t.Error("id should depend only on the GUID when present")
	}
	if strings.ContainsAny(id, "/?:") {
		t.Errorf("id %q is not filename safe", id)
	}
	if DocumentID(withoutGUID) == id {
		t.Error("link based id should differ from GUID based id")
	}
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	if got := PlainText("<div>Room\n <i>B12</i></div>"); got != "Room B12" {
		t.Errorf("PlainText() = %q", got)
	}
	if got := PlainText("   "); got != "" {
		t.Errorf("PlainText() = %q, want empty", got)
	}
}
