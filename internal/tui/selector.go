package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/billmal071/narubooks/internal/snapshot"
)

// LoadMoreFunc is a callback that returns the next page of books
type LoadMoreFunc func() ([]snapshot.Book, error)

// loadMoreMsg is sent when more books are loaded
type loadMoreMsg struct {
	books []snapshot.Book
	err   error
}

// BookItem wraps a Book for the list component
type BookItem struct {
	Book snapshot.Book
}

func (b BookItem) Title() string { return b.Book.Title }

func (b BookItem) Description() string {
	var parts []string

	if b.Book.Author != "" {
		parts = append(parts, b.Book.Author)
	}
	if b.Book.Publisher != "" {
		parts = append(parts, b.Book.Publisher)
	}
	if b.Book.Year != "" {
		parts = append(parts, b.Book.Year)
	}
	if b.Book.Category != "" {
		parts = append(parts, b.Book.Category)
	}

	if len(parts) == 0 {
		return DimStyle.Render("No metadata available")
	}
	return DimStyle.Render(strings.Join(parts, " | "))
}

func (b BookItem) FilterValue() string { return b.Book.Title + " " + b.Book.Author }

func (b BookItem) key() string { return b.Book.LibraryCode + "/" + b.Book.ID }

// detail is the third line of an item: where the book is and its flags
func (b BookItem) detail() string {
	parts := []string{b.Book.Library}
	if b.Book.CallNumber != "" {
		parts = append(parts, b.Book.CallNumber)
	}
	if b.Book.ISBN != "" {
		parts = append(parts, "ISBN "+b.Book.ISBN)
	}
	if b.Book.IsNew {
		parts = append(parts, "new")
	}
	if b.Book.Ranking > 0 {
		parts = append(parts, fmt.Sprintf("#%d", b.Book.Ranking))
	}
	return strings.Join(parts, " · ")
}

// BookDelegate handles rendering of book items
type BookDelegate struct{}

func (d BookDelegate) Height() int                             { return 3 }
func (d BookDelegate) Spacing() int                            { return 0 }
func (d BookDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d BookDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	book, ok := item.(BookItem)
	if !ok {
		return
	}

	title := Truncate(book.Book.Title, 40)

	var str string
	if index == m.Index() {
		str = SelectedStyle.Render(fmt.Sprintf("  ➤ %d. %s", index+1, title))
	} else {
		str = NormalStyle.Render(fmt.Sprintf("    %d. %s", index+1, title))
	}
	str += "\n" + DimStyle.Render(fmt.Sprintf("      %s", book.Description()))
	str += "\n" + AccentStyle.Render(fmt.Sprintf("      %s", book.detail()))

	fmt.Fprint(w, str)
}

// BrowserModel is the Bubble Tea model for browsing snapshot books
type BrowserModel struct {
	list          list.Model
	selected      *snapshot.Book
	quitting      bool
	err           error
	loadMore      LoadMoreFunc
	loading       bool
	seen          map[string]bool
	noMoreResults bool
}

// NewBrowser creates a book browser; loadMore may be nil
func NewBrowser(books []snapshot.Book, title string, loadMore LoadMoreFunc) BrowserModel {
	items := make([]list.Item, 0, len(books))
	seen := make(map[string]bool, len(books))
	for _, book := range books {
		item := BookItem{Book: book}
		if seen[item.key()] {
			continue
		}
		seen[item.key()] = true
		items = append(items, item)
	}

	l := list.New(items, BookDelegate{}, 80, 20)
	l.Title = title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	l.Styles.Title = TitleStyle

	return BrowserModel{
		list:     l,
		loadMore: loadMore,
		seen:     seen,
	}
}

func (m BrowserModel) Init() tea.Cmd {
	return nil
}

func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Don't handle keys while loading
		if m.loading {
			return m, nil
		}
		// Let the list own keys while the filter prompt is open
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(BookItem); ok {
				book := item.Book
				m.selected = &book
			}
			return m, tea.Quit
		case "m", "M":
			if m.loadMore != nil && !m.noMoreResults {
				m.loading = true
				return m, m.doLoadMore()
			}
			return m, nil
		}
	case loadMoreMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.noMoreResults = true
			return m, nil
		}
		newItems := make([]list.Item, 0, len(msg.books))
		for _, book := range msg.books {
			item := BookItem{Book: book}
			if m.seen[item.key()] {
				continue
			}
			m.seen[item.key()] = true
			newItems = append(newItems, item)
		}
		if len(newItems) == 0 {
			m.noMoreResults = true
			return m, nil
		}
		cmd := m.list.SetItems(append(m.list.Items(), newItems...))
		return m, cmd
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, max(msg.Height-4, 6))
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// doLoadMore returns a command that loads more books
func (m BrowserModel) doLoadMore() tea.Cmd {
	return func() tea.Msg {
		books, err := m.loadMore()
		return loadMoreMsg{books: books, err: err}
	}
}

func (m BrowserModel) View() string {
	if m.selected != nil {
		return SuccessStyle.Render(fmt.Sprintf("\n  ✓ %s (%s)\n", m.selected.Title, m.selected.Library))
	}

	if m.quitting {
		return DimStyle.Render("\n  Bye.\n")
	}

	if m.loading {
		return "\n" + m.list.View() + "\n" + WarningStyle.Render("  Loading more books...")
	}

	helpParts := []string{"↑/↓: navigate", "/: filter", "enter: details"}
	if m.loadMore != nil && !m.noMoreResults {
		helpParts = append(helpParts, "m: more")
	}
	helpParts = append(helpParts, "q/esc: quit")
	help := HelpStyle.Render("  " + strings.Join(helpParts, " • "))

	view := "\n" + m.list.View() + "\n" + help
	if m.err != nil {
		view += "\n" + ErrorStyle.Render("  Error: "+m.err.Error())
	}
	return view
}

// Selected returns the book chosen with enter, or nil
func (m BrowserModel) Selected() *snapshot.Book {
	return m.selected
}

// Len returns the number of books loaded into the list
func (m BrowserModel) Len() int {
	return len(m.list.Items())
}

// RunBrowser displays the browser and returns the book chosen with enter
func RunBrowser(books []snapshot.Book, title string, loadMore LoadMoreFunc) (*snapshot.Book, error) {
	if len(books) == 0 {
		return nil, fmt.Errorf("no books to browse")
	}

	p := tea.NewProgram(NewBrowser(books, title, loadMore), tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	browser := finalModel.(BrowserModel)
	return browser.Selected(), nil
}
