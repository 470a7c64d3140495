package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/xwincast/xwincast/internal/logger"
)

// ListWindows enumerates candidate capture targets, preferring the window
// manager's EWMH client list and falling back to a root QueryTree walk.
func (s *Session) ListWindows() ([]WindowInfo, error) {
	log := logger.WithComponent("x11")

	windows, err := s.listWindowsEWMH()
	if err == nil && len(windows) > 0 {
		return windows, nil
	}
	if err != nil {
		log.Debug().Err(err).Msg("EWMH client list unavailable, falling back to QueryTree")
	}

	return s.listWindowsQueryTree()
}

// listWindowsEWMH reads _NET_CLIENT_LIST from the root window.
func (s *Session) listWindowsEWMH() ([]WindowInfo, error) {
	clientListAtom, err := s.atom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}

	reply, err := xproto.GetProperty(
		s.conn, false, s.screen.Root,
		clientListAtom, xproto.GetPropertyTypeAny,
		0, (1<<32)-1,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to read _NET_CLIENT_LIST: %w", err)
	}
	if reply.ValueLen == 0 {
		return nil, fmt.Errorf("_NET_CLIENT_LIST is empty")
	}

	windows := make([]WindowInfo, 0, reply.ValueLen)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		win := Window(xgb.Get32(reply.Value[i:]))
		info, err := s.windowInfo(win)
		if err != nil {
			continue
		}
		if info.Title == "" && info.Class == "" {
			continue
		}
		windows = append(windows, info)
	}
	return windows, nil
}

// listWindowsQueryTree walks the immediate children of the root window.
func (s *Session) listWindowsQueryTree() ([]WindowInfo, error) {
	tree, err := xproto.QueryTree(s.conn, s.screen.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query window tree: %w", err)
	}

	windows := make([]WindowInfo, 0, len(tree.Children))
	for _, child := range tree.Children {
		info, err := s.windowInfo(Window(child))
		if err != nil {
			continue
		}
		if info.Title == "" && info.Class == "" {
			continue
		}
		windows = append(windows, info)
	}
	return windows, nil
}

// windowInfo collects id, title, class and geometry for one window.
func (s *Session) windowInfo(win Window) (WindowInfo, error) {
	info := WindowInfo{ID: win}

	geom, err := s.Geometry(win)
	if err != nil {
		return info, err
	}
	info.Geometry = geom

	if atom, err := s.atom("_NET_WM_NAME"); err == nil {
		if title, err := s.property(win, atom); err == nil {
			info.Title = title
		}
	}
	if info.Title == "" {
		if atom, err := s.atom("WM_NAME"); err == nil {
			if title, err := s.property(win, atom); err == nil {
				info.Title = title
			}
		}
	}

	// WM_CLASS holds instance\0class\0; the class half names the application.
	if atom, err := s.atom("WM_CLASS"); err == nil {
		if raw, err := s.property(win, atom); err == nil {
			parts := strings.Split(raw, "\x00")
			if len(parts) >= 2 && parts[1] != "" {
				info.Class = parts[1]
			} else if len(parts) >= 1 {
				info.Class = parts[0]
			}
		}
	}

	return info, nil
}
