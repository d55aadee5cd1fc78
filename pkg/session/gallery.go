package session

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"k8s.io/klog/v2"

	"github.com/tstromberg/imagetag/pkg/export"
	"github.com/tstromberg/imagetag/pkg/gallery"
	"github.com/tstromberg/imagetag/pkg/media"
	"github.com/tstromberg/imagetag/pkg/prefs"
	"github.com/tstromberg/imagetag/pkg/store"
)

// DefaultRefresh is how often the label set is re-read while a gallery is open.
var DefaultRefresh = 2 * time.Second

// State is an immutable snapshot of the gallery. Published snapshots are never modified.
type State struct {
	Directory string
	Settings  prefs.Settings

	// Files is the current page. Groups is set when grouping by date.
	Files  []media.MediaFile
	Groups [][]media.MediaFile

	Pages      []gallery.Page
	Page       int
	TotalFiles int
	HasMore    bool

	Labels     []store.Label
	FileLabels map[string][]store.Label
}

// LabelsOf returns the labels of a file on the current page.
func (s State) LabelsOf(path string) []store.Label {
	return s.FileLabels[path]
}

// HasLabel reports whether a file on the current page carries a label.
func (s State) HasLabel(path string, labelID int64) bool {
	return slices.ContainsFunc(s.FileLabels[path], func(l store.Label) bool { return l.ID == labelID })
}

// CurrentPage returns the boundaries of the page being shown.
func (s State) CurrentPage() (gallery.Page, bool) {
	if s.Page < 0 || s.Page >= len(s.Pages) {
		return gallery.Page{}, false
	}
	return s.Pages[s.Page], true
}

// GalleryOptions configure scanning.
type GalleryOptions struct {
	Reader   media.CaptureReader
	Hidden   bool
	Progress bool
}

// Gallery shows one page of the selected directory at a time and applies label changes to it.
type Gallery struct {
	prefs Preferences
	store LabelStore
	opts  GalleryOptions

	mu     sync.Mutex
	gen    uint64
	files  []media.MediaFile
	state  State
	recent []int64

	// per-file label lists seen so far, merged as pages are loaded
	memo *cache.Cache
}

// NewGallery returns an empty gallery. Call Load to scan.
func NewGallery(p Preferences, s LabelStore, o GalleryOptions) *Gallery {
	return &Gallery{
		prefs: p,
		store: s,
		opts:  o,
		state: State{Settings: p.Settings(), FileLabels: map[string][]store.Label{}},
		memo:  cache.New(30*time.Minute, 10*time.Minute),
	}
}

// State returns the latest published snapshot.
func (g *Gallery) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Files returns every file of the last scan in display order.
func (g *Gallery) Files() []media.MediaFile {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.files
}

func (g *Gallery) begin() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	return g.gen
}

// commit runs fn under the lock unless a newer operation has started since gen.
func (g *Gallery) commit(gen uint64, fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen {
		klog.V(1).Infof("discarding superseded result %d (current %d)", gen, g.gen)
		return false
	}
	fn()
	return true
}

// Load scans the selected directory, sorts and paginates it, and shows the first page.
// A load started later replaces the result of this one.
func (g *Gallery) Load(ctx context.Context) error {
	gen := g.begin()
	st := g.prefs.Settings()

	if st.SelectedDirectory == "" {
		g.commit(gen, func() {
			g.files = nil
			g.state = State{Settings: st, Labels: g.state.Labels, FileLabels: map[string][]store.Label{}}
		})
		return ErrNoDirectory
	}

	raw, err := media.Scan(ctx, st.SelectedDirectory, media.Options{
		Reader:   g.opts.Reader,
		Hidden:   g.opts.Hidden,
		Progress: g.opts.Progress,
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", st.SelectedDirectory, err)
	}

	dt := gallery.DateType(st.DateType)
	files := gallery.Sort(raw, gallery.SortBy(st.SortBy), st.SortAscending, dt)
	pages := gallery.Paginate(files, st.PageSize, dt)

	available, err := g.store.Labels(ctx)
	if err != nil {
		return err
	}

	next, err := g.page(ctx, st, files, pages, 0, available)
	if err != nil {
		return err
	}

	if g.commit(gen, func() {
		g.files = files
		g.state = next
	}) {
		klog.Infof("loaded %d files in %d pages from %s", len(files), len(pages), st.SelectedDirectory)
	}
	return nil
}

// LoadPage shows page idx of the last scan.
func (g *Gallery) LoadPage(ctx context.Context, idx int) error {
	g.mu.Lock()
	files, cur := g.files, g.state
	g.mu.Unlock()

	if idx < 0 || idx >= len(cur.Pages) {
		return fmt.Errorf("%w: %d (have %d)", ErrNoPage, idx, len(cur.Pages))
	}

	gen := g.begin()
	next, err := g.page(ctx, cur.Settings, files, cur.Pages, idx, cur.Labels)
	if err != nil {
		return err
	}
	g.commit(gen, func() {
		next.Labels = g.state.Labels
		g.state = next
	})
	return nil
}

// NextPage shows the page after the current one.
func (g *Gallery) NextPage(ctx context.Context) error {
	cur := g.State()
	if !cur.HasMore {
		return fmt.Errorf("%w: %d is the last page", ErrNoPage, cur.Page)
	}
	return g.LoadPage(ctx, cur.Page+1)
}

func (g *Gallery) page(ctx context.Context, st prefs.Settings, files []media.MediaFile, pages []gallery.Page, idx int, available []store.Label) (State, error) {
	next := State{
		Directory:  st.SelectedDirectory,
		Settings:   st,
		Pages:      pages,
		Page:       idx,
		TotalFiles: len(files),
		Labels:     available,
		FileLabels: map[string][]store.Label{},
	}
	if idx >= len(pages) {
		return next, nil
	}

	dt := gallery.DateType(st.DateType)
	pageFiles := pages[idx].Files(files)
	next.Files = pageFiles
	next.HasMore = idx < len(pages)-1
	if st.GroupByDate {
		next.Groups = gallery.OrderGroups(gallery.GroupByTime(pageFiles, st.TimeThreshold, dt), dt, st.SortAscending)
	}

	paths := pathsOf(pageFiles)
	byPath, err := g.resolve(ctx, paths, available)
	if err != nil {
		return State{}, err
	}
	for _, p := range paths {
		next.FileLabels[p] = byPath[p]
	}
	return next, nil
}

// resolve reads the labels of paths from the store and records them in the memo.
// Every path gets an entry, so labels removed elsewhere do not linger.
func (g *Gallery) resolve(ctx context.Context, paths []string, available []store.Label) (map[string][]store.Label, error) {
	fls, err := g.store.FileLabelsFor(ctx, paths)
	if err != nil {
		return nil, err
	}

	lm := labelMap(available)
	byPath := make(map[string][]store.Label, len(paths))
	for _, fl := range fls {
		if l, ok := lm[fl.LabelID]; ok {
			byPath[fl.FilePath] = append(byPath[fl.FilePath], l)
		}
	}
	for _, p := range paths {
		g.memo.Set(p, byPath[p], cache.DefaultExpiration)
	}
	return byPath, nil
}

func pathsOf(files []media.MediaFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

// LabelsFor returns the labels of any file, consulting the memo before the store.
func (g *Gallery) LabelsFor(ctx context.Context, path string) ([]store.Label, error) {
	if v, ok := g.memo.Get(path); ok {
		return v.([]store.Label), nil
	}
	available, err := g.store.Labels(ctx)
	if err != nil {
		return nil, err
	}
	byPath, err := g.resolve(ctx, []string{path}, available)
	if err != nil {
		return nil, err
	}
	return byPath[path], nil
}

// refresh re-reads the labels of paths and merges them into the published state.
func (g *Gallery) refresh(ctx context.Context, paths []string) error {
	available, err := g.store.Labels(ctx)
	if err != nil {
		return err
	}
	byPath, err := g.resolve(ctx, paths, available)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	next := g.state
	next.Labels = available
	next.FileLabels = maps.Clone(g.state.FileLabels)
	if next.FileLabels == nil {
		next.FileLabels = map[string][]store.Label{}
	}
	for _, p := range paths {
		next.FileLabels[p] = byPath[p]
	}
	g.state = next
	return nil
}

// ToggleFileLabel adds the label to the file, or removes it if present.
// It reports whether the label is now assigned.
func (g *Gallery) ToggleFileLabel(ctx context.Context, path string, labelID int64) (bool, error) {
	added, err := g.store.ToggleFileLabel(ctx, path, labelID)
	if err != nil {
		return false, err
	}
	if added {
		g.touch(labelID)
	}
	return added, g.refresh(ctx, []string{path})
}

// ToggleGroupLabel removes the label from every file of the group if all of
// them carry it, and otherwise adds it to the files that lack it.
// It reports whether the label was added.
func (g *Gallery) ToggleGroupLabel(ctx context.Context, groupIndex int, labelID int64) (bool, error) {
	cur := g.State()
	if groupIndex < 0 || groupIndex >= len(cur.Groups) {
		return false, fmt.Errorf("%w: %d (have %d)", ErrNoGroup, groupIndex, len(cur.Groups))
	}
	group := cur.Groups[groupIndex]

	allHave := true
	for _, f := range group {
		if !cur.HasLabel(f.Path, labelID) {
			allHave = false
			break
		}
	}

	for _, f := range group {
		has := cur.HasLabel(f.Path, labelID)
		switch {
		case allHave && has:
			if err := g.store.RemoveFileLabel(ctx, f.Path, labelID); err != nil {
				return false, err
			}
		case !allHave && !has:
			if err := g.store.AddFileLabel(ctx, f.Path, labelID); err != nil {
				return false, err
			}
		}
	}
	if !allHave {
		g.touch(labelID)
	}
	return !allHave, g.refresh(ctx, pathsOf(group))
}

// touch moves a label to the front of the recently used list.
func (g *Gallery) touch(labelID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recent = slices.DeleteFunc(g.recent, func(id int64) bool { return id == labelID })
	g.recent = slices.Insert(g.recent, 0, labelID)
}

// SortedLabels returns recently used labels first, most recent first, then the rest by name.
func (g *Gallery) SortedLabels() []store.Label {
	g.mu.Lock()
	defer g.mu.Unlock()

	lm := labelMap(g.state.Labels)
	out := []store.Label{}
	used := map[int64]bool{}
	for _, id := range g.recent {
		if l, ok := lm[id]; ok {
			out = append(out, l)
			used[id] = true
		}
	}

	rest := []store.Label{}
	for _, l := range g.state.Labels {
		if !used[l.ID] {
			rest = append(rest, l)
		}
	}
	slices.SortStableFunc(rest, func(a, b store.Label) int { return strings.Compare(a.Name, b.Name) })
	return append(out, rest...)
}

// NextUnlabeled returns the list position of the first unlabeled file on the page.
// When grouped, it is the position of the header of the first group with an
// unlabeled file, counting a header, the files, and a spacer per group.
func (g *Gallery) NextUnlabeled() (int, bool) {
	cur := g.State()
	unlabeled := func(f media.MediaFile) bool { return len(cur.FileLabels[f.Path]) == 0 }

	if !cur.Settings.GroupByDate {
		i := slices.IndexFunc(cur.Files, unlabeled)
		return i, i >= 0
	}

	item := 0
	for _, grp := range cur.Groups {
		if slices.ContainsFunc(grp, unlabeled) {
			return item, true
		}
		item += 1 + len(grp) + 1
	}
	return -1, false
}

// PageRows returns export rows for every file of the current page.
func (g *Gallery) PageRows(ctx context.Context) ([]export.Row, error) {
	cur := g.State()
	if _, ok := cur.CurrentPage(); !ok {
		return nil, fmt.Errorf("%w: no current page", ErrNoPage)
	}

	paths := pathsOf(cur.Files)
	fls, err := g.store.FileLabelsFor(ctx, paths)
	if err != nil {
		return nil, err
	}
	available, err := g.store.Labels(ctx)
	if err != nil {
		return nil, err
	}
	return export.Rows(paths, fls, available), nil
}

// AllRows returns export rows for every labeled file in the store. With
// existingOnly, files missing from the last scan are left out.
func (g *Gallery) AllRows(ctx context.Context, existingOnly bool) ([]export.Row, error) {
	fls, err := g.store.FileLabels(ctx)
	if err != nil {
		return nil, err
	}
	available, err := g.store.Labels(ctx)
	if err != nil {
		return nil, err
	}

	var keep func(string) bool
	if existingOnly {
		present := map[string]bool{}
		for _, f := range g.Files() {
			present[f.Path] = true
		}
		keep = func(p string) bool { return present[p] }
	}
	return export.RowsFromStore(fls, available, keep), nil
}

// ExportPage renders the current page as CSV.
func (g *Gallery) ExportPage(ctx context.Context) (string, error) {
	rows, err := g.PageRows(ctx)
	if err != nil {
		return "", err
	}
	return export.String(rows), nil
}

// ExportAll renders every labeled file as CSV. See AllRows.
func (g *Gallery) ExportAll(ctx context.Context, existingOnly bool) (string, error) {
	rows, err := g.AllRows(ctx, existingOnly)
	if err != nil {
		return "", err
	}
	return export.String(rows), nil
}

// SaveGroups stores the time groups of the current page.
func (g *Gallery) SaveGroups(ctx context.Context) ([]store.FileGroup, error) {
	cur := g.State()
	if len(cur.Groups) == 0 {
		return nil, fmt.Errorf("%w: grouping is off or the page is empty", ErrNoGroup)
	}

	dt := gallery.DateType(cur.Settings.DateType)
	saved := []store.FileGroup{}
	for _, grp := range cur.Groups {
		lo, hi := gallery.Span(grp, dt)
		name := lo.Format(gallery.PageDateFormat) + " - " + hi.Format(gallery.PageDateFormat)
		fg, err := g.store.SaveGroup(ctx, &name, cur.Settings.TimeThreshold, pathsOf(grp))
		if err != nil {
			return saved, err
		}
		saved = append(saved, fg)
	}
	return saved, nil
}

// ReloadLabels re-reads the label set and reports whether it changed.
func (g *Gallery) ReloadLabels(ctx context.Context) (bool, error) {
	available, err := g.store.Labels(ctx)
	if err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	same := slices.EqualFunc(available, g.state.Labels, func(a, b store.Label) bool {
		return a.ID == b.ID && a.Name == b.Name
	})
	if same {
		return false, nil
	}
	next := g.state
	next.Labels = available
	g.state = next
	return true, nil
}

// RefreshLabels re-reads the label set every interval until ctx ends,
// calling changed with the new state whenever it differs.
func (g *Gallery) RefreshLabels(ctx context.Context, interval time.Duration, changed func(State)) {
	if interval <= 0 {
		interval = DefaultRefresh
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ok, err := g.ReloadLabels(ctx)
			if err != nil {
				if ctx.Err() == nil {
					klog.Warningf("refresh labels: %v", err)
				}
				continue
			}
			if ok && changed != nil {
				changed(g.State())
			}
		}
	}
}
