package multiFilePicker

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rescp17/vacuumDrop/internal/style"
	"github.com/rescp17/vacuumDrop/internal/util"
	"github.com/rescp17/vacuumDrop/pkg/fileInfo"
)

// SelectedFileNodeMsg is emitted when the user confirms a selection.
type SelectedFileNodeMsg struct {
	Files []fileInfo.FileNode
}

// CancelledMsg is emitted when the user backs out of the picker.
type CancelledMsg struct{}

type mode int

const (
	modeBrowse mode = iota
	modeInput
)

type KeyMap struct {
	Up           key.Binding
	Down         key.Binding
	Open         key.Binding
	Parent       key.Binding
	ToggleSelect key.Binding
	ToggleInput  key.Binding
	Confirm      key.Binding
	Back         key.Binding
}

var DefaultKeyMap = KeyMap{
	Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
	Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
	Open:         key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "open dir")),
	Parent:       key.NewBinding(key.WithKeys("left", "h", "backspace"), key.WithHelp("←/h", "parent dir")),
	ToggleSelect: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
	ToggleInput:  key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "type path")),
	Confirm:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
}

// Model browses one directory at a time and keeps a selection across
// directories.
type Model struct {
	path     string
	items    []fs.DirEntry
	selected map[string]struct{}
	cursor   int
	offset   int
	height   int
	keys     KeyMap
	mode     mode
	input    textinput.Model
	inputErr error
}

// InitialModel starts browsing the working directory.
func InitialModel() Model {
	ti := textinput.New()
	ti.Placeholder = "path to a directory"
	ti.CharLimit = 256
	ti.Width = 60

	m := Model{
		selected: make(map[string]struct{}),
		keys:     DefaultKeyMap,
		mode:     modeBrowse,
		input:    ti,
	}
	wd, err := os.Getwd()
	if err != nil {
		slog.Warn("Could not get working directory", "error", err)
		wd = "."
	}
	if err := m.SetPath(wd); err != nil {
		m.inputErr = err
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
	case tea.KeyMsg:
		if m.mode == modeInput {
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CancelledMsg{} }
	case key.Matches(msg, m.keys.ToggleInput):
		m.mode = modeInput
		m.input.SetValue(m.path)
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		if item, ok := m.current(); ok && item.IsDir() {
			m.setPathOrError(filepath.Join(m.path, item.Name()))
		}
	case key.Matches(msg, m.keys.Parent):
		m.setPathOrError(filepath.Dir(m.path))
	case key.Matches(msg, m.keys.ToggleSelect):
		if item, ok := m.current(); ok {
			path := filepath.Join(m.path, item.Name())
			if _, exists := m.selected[path]; exists {
				delete(m.selected, path)
			} else {
				m.selected[path] = struct{}{}
			}
		}
	case key.Matches(msg, m.keys.Confirm):
		if len(m.selected) > 0 {
			files := selectedFileNodes(m.selected)
			return m, func() tea.Msg { return SelectedFileNodeMsg{Files: files} }
		}
	}
	m.scroll()
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.mode = modeBrowse
		m.input.Blur()
		m.inputErr = nil
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		path := m.input.Value()
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.path, path)
		}
		if err := m.SetPath(path); err != nil {
			m.inputErr = err
			return m, nil
		}
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) setPathOrError(path string) {
	if err := m.SetPath(path); err != nil {
		m.inputErr = err
	}
}

func (m Model) current() (fs.DirEntry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil, false
	}
	return m.items[m.cursor], true
}

// SetPath switches the browsed directory. Entries are sorted by name.
func (m *Model) SetPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	exists, isDir, err := util.CheckDirectory(absPath)
	if err != nil {
		return fmt.Errorf("could not stat %s: %w", absPath, err)
	}
	if !exists {
		return fmt.Errorf("path does not exist: %s", absPath)
	}
	if !isDir {
		return fmt.Errorf("path is not a directory: %s", absPath)
	}
	items, err := os.ReadDir(absPath)
	if err != nil {
		return fmt.Errorf("could not read directory: %w", err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name() < items[j].Name() })

	m.path = absPath
	m.items = items
	m.cursor = 0
	m.offset = 0
	m.inputErr = nil
	m.mode = modeBrowse
	return nil
}

// Selected returns the selected paths in sorted order.
func (m Model) Selected() []string {
	paths := make([]string, 0, len(m.selected))
	for p := range m.selected {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (m *Model) scroll() {
	visible := m.visibleItems()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

func (m Model) visibleItems() int {
	const headerHeight = 8
	if visible := m.height - headerHeight; visible > 0 {
		return visible
	}
	return 15
}

func (m Model) View() string {
	var s strings.Builder

	if m.mode == modeInput {
		s.WriteString(m.input.View() + "\n")
	} else {
		s.WriteString(fmt.Sprintf("Browsing: %s\n", m.path))
	}
	if m.inputErr != nil {
		s.WriteString(style.ErrorStyle.Render(m.inputErr.Error()) + "\n")
	}
	s.WriteString("\n")

	const (
		nameWidth = 40
		sizeWidth = 12
	)
	s.WriteString("      " + style.HeaderStyle.Render(util.PadRight("Name", nameWidth)+" "+util.PadRight("Size", sizeWidth)) + "\n")

	end := m.offset + m.visibleItems()
	if end > len(m.items) {
		end = len(m.items)
	}
	for i := m.offset; i < end; i++ {
		item := m.items[i]
		if i == m.cursor {
			s.WriteString(style.CursorStyle.String())
		} else {
			s.WriteString("  ")
		}
		if _, ok := m.selected[filepath.Join(m.path, item.Name())]; ok {
			s.WriteString(style.SelectedStyle.String())
		} else {
			s.WriteString(style.DeselectedStyle.String())
		}

		name := item.Name()
		size := ""
		if item.IsDir() {
			name += "/"
			size = "<DIR>"
		} else if info, err := item.Info(); err == nil {
			size = util.FormatSize(info.Size())
		}
		nameCell := util.PadRight(name, nameWidth)
		if item.IsDir() {
			nameCell = style.DirStyle.Render(nameCell)
		}
		s.WriteString(nameCell + " " + util.PadRight(size, sizeWidth) + "\n")
	}
	if len(m.items) > m.visibleItems() {
		s.WriteString(fmt.Sprintf("\n... %d/%d ...\n", m.cursor+1, len(m.items)))
	}

	s.WriteString(fmt.Sprintf("\n%d selected\n", len(m.selected)))
	s.WriteString(style.HelpStyle.Render(m.helpView()))
	return s.String()
}

func (m Model) helpView() string {
	bindings := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Open, m.keys.Parent, m.keys.ToggleSelect, m.keys.ToggleInput, m.keys.Confirm, m.keys.Back}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, b.Help().Key+" "+b.Help().Desc)
	}
	return strings.Join(parts, " • ")
}

func selectedFileNodes(selection map[string]struct{}) []fileInfo.FileNode {
	paths := make([]string, 0, len(selection))
	for p := range selection {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	files := make([]fileInfo.FileNode, 0, len(paths))
	for _, path := range paths {
		node, err := fileInfo.CreateNode(path)
		if err != nil {
			slog.Warn("Skipping unreadable selection", "path", path, "error", err)
			continue
		}
		files = append(files, node)
	}
	return files
}
