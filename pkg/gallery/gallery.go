// Package gallery groups a list's photos by month and day, merging in
// uploads that are still pending.
package gallery

import (
	"context"
	"sort"
	"time"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/logger"
	"github.com/Kush1612/BuckIt/pkg/pending"
	"github.com/Kush1612/BuckIt/pkg/photos"
	"golang.org/x/sync/errgroup"
)

const (
	dayLayout        = "2006-01-02"
	monthLabelLayout = "Jan 2006"
	dayLabelLayout   = "Jan 2, 2006"
	maxConcurrent    = 6
)

// Photo is one tile of the gallery.
type Photo struct {
	ID      string `json:"id"`
	URI     string `json:"uri"`
	Title   string `json:"title"`
	File    string `json:"file"`
	Date    string `json:"date"`
	Pending bool   `json:"pending,omitempty"`
}

// Day holds the photos taken on one calendar day.
type Day struct {
	Date   string  `json:"date"`
	Label  string  `json:"label"`
	Photos []Photo `json:"photos"`
}

// Month holds the days of one calendar month, newest first.
type Month struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Days  []Day  `json:"days"`
}

// Gallery is the grouped result of Build.
type Gallery struct {
	Months []Month `json:"months"`
	// Confirmed lists the files the backend already serves. Pending
	// records for these files are stale.
	Confirmed []string `json:"-"`
}

// Count returns the number of photos across all days.
func (g *Gallery) Count() int {
	n := 0
	for _, m := range g.Months {
		for _, d := range m.Days {
			n += len(d.Photos)
		}
	}
	return n
}

// Build resolves the photos of items and groups them month → day.
// A photo is dated by the memory recorded for its file, else by the
// item's creation time, else by now. Photos that cannot be resolved are
// skipped. Pending uploads whose file is not confirmed go to the front of
// their day unless that day already shows the file.
func Build(ctx context.Context, items []api.Item, ups []pending.Upload, resolve photos.ResolveFunc, now time.Time) *Gallery {
	type slot struct {
		item *api.Item
		file string
		uri  string
	}

	var slots []*slot
	for i := range items {
		for _, f := range items[i].Photos {
			if f != "" {
				slots = append(slots, &slot{item: &items[i], file: f})
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for _, s := range slots {
		g.Go(func() error {
			uri, err := resolve(gctx, s.item.ID, s.file)
			if err != nil {
				logger.Warn("Failed to resolve photo for gallery", "file", s.file, "item_id", s.item.ID, "error", err)
				return nil
			}
			s.uri = uri
			return nil
		})
	}
	_ = g.Wait()

	b := newBuckets()
	confirmed := map[string]bool{}
	out := &Gallery{}

	for _, s := range slots {
		if s.uri == "" {
			continue
		}
		date := photoDate(s.item, s.file, now)
		day := b.day(dayKey(date, now))
		*day = append(*day, Photo{
			ID:    s.item.ID + "-" + s.file,
			URI:   s.uri,
			Title: s.item.Title,
			File:  s.file,
			Date:  date,
		})
		if !confirmed[s.file] {
			confirmed[s.file] = true
			out.Confirmed = append(out.Confirmed, s.file)
		}
	}

	for _, u := range ups {
		if confirmed[u.File] {
			continue
		}
		date := u.Date
		if date == "" {
			date = api.FormatTime(now)
		}
		day := b.day(dayKey(date, now))
		if hasFile(*day, u.File) {
			continue
		}
		*day = append([]Photo{{
			ID:      "pending-" + u.File + "-" + u.Date,
			URI:     u.URI,
			Title:   u.Title,
			File:    u.File,
			Date:    date,
			Pending: true,
		}}, *day...)
	}

	out.Months = b.sorted()
	return out
}

// photoDate picks the timestamp a photo is filed under.
func photoDate(item *api.Item, file string, now time.Time) string {
	for _, m := range item.Memories {
		if (m.File == file || m.URL == file) && m.Date != "" {
			return m.Date
		}
	}
	if !item.CreatedAt.IsZero() {
		return api.FormatTime(item.CreatedAt)
	}
	return api.FormatTime(now)
}

// dayKey is the YYYY-MM-DD prefix of a timestamp. Values that do not start
// with a date fall on today.
func dayKey(date string, now time.Time) string {
	if len(date) >= len(dayLayout) {
		if _, err := time.Parse(dayLayout, date[:len(dayLayout)]); err == nil {
			return date[:len(dayLayout)]
		}
	}
	return now.UTC().Format(dayLayout)
}

func hasFile(photos []Photo, file string) bool {
	for _, p := range photos {
		if p.File == file {
			return true
		}
	}
	return false
}

// buckets accumulates photos by month key and day key.
type buckets struct {
	months map[string]map[string]*[]Photo
}

func newBuckets() *buckets {
	return &buckets{months: map[string]map[string]*[]Photo{}}
}

func (b *buckets) day(key string) *[]Photo {
	month := key[:7]
	days, ok := b.months[month]
	if !ok {
		days = map[string]*[]Photo{}
		b.months[month] = days
	}
	d, ok := days[key]
	if !ok {
		d = &[]Photo{}
		days[key] = d
	}
	return d
}

func (b *buckets) sorted() []Month {
	monthKeys := make([]string, 0, len(b.months))
	for k := range b.months {
		monthKeys = append(monthKeys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(monthKeys)))

	out := make([]Month, 0, len(monthKeys))
	for _, mk := range monthKeys {
		days := b.months[mk]
		dayKeys := make([]string, 0, len(days))
		for k := range days {
			dayKeys = append(dayKeys, k)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(dayKeys)))

		first, _ := time.Parse(dayLayout, dayKeys[0])
		m := Month{Key: mk, Label: first.Format(monthLabelLayout)}
		for _, dk := range dayKeys {
			t, _ := time.Parse(dayLayout, dk)
			m.Days = append(m.Days, Day{Date: dk, Label: t.Format(dayLabelLayout), Photos: *days[dk]})
		}
		out = append(out, m)
	}
	return out
}
