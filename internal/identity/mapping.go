package identity

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	waStore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
)

// DeviceMappingStore reads PN<->LID relations from the device session store,
// which learns them from the server as chats arrive.
type DeviceMappingStore struct {
	LIDs waStore.LIDStore
}

func NewDeviceMappingStore(lids waStore.LIDStore) *DeviceMappingStore {
	return &DeviceMappingStore{LIDs: lids}
}

func (s *DeviceMappingStore) LIDForPN(ctx context.Context, user string) (string, error) {
	if s.LIDs == nil || user == "" {
		return "", nil
	}
	lid, err := s.LIDs.GetLIDForPN(ctx, types.NewJID(user, types.DefaultUserServer))
	if err != nil {
		return "", err
	}
	return lid.User, nil
}

func (s *DeviceMappingStore) PNForLID(ctx context.Context, user string) (string, error) {
	if s.LIDs == nil || user == "" {
		return "", nil
	}
	pn, err := s.LIDs.GetPNForLID(ctx, types.NewJID(user, types.HiddenUserServer))
	if err != nil {
		return "", err
	}
	return pn.User, nil
}

// FileMappingStore reads per-account mapping records dropped next to the
// session data, one JSON file per direction:
//
//	lid-mapping-<user>.json          PN user -> LID user
//	lid-mapping-<user>_reverse.json  LID user -> PN user
type FileMappingStore struct {
	Dir string
}

func NewFileMappingStore(dir string) *FileMappingStore {
	return &FileMappingStore{Dir: dir}
}

func (s *FileMappingStore) LIDForPN(_ context.Context, user string) (string, error) {
	return s.read(user, ".json")
}

func (s *FileMappingStore) PNForLID(_ context.Context, user string) (string, error) {
	return s.read(user, "_reverse.json")
}

func (s *FileMappingStore) read(user, suffix string) (string, error) {
	if s.Dir == "" || user == "" || strings.ContainsAny(user, "/\\") {
		return "", nil
	}

	raw, err := os.ReadFile(filepath.Join(s.Dir, "lid-mapping-"+user+suffix))
	if err != nil {
		return "", nil
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", nil
	}

	var mapped string
	if err := json.Unmarshal([]byte(trimmed), &mapped); err != nil {
		return "", nil
	}
	return mapped, nil
}

// MultiMappingStore queries each source in order and returns the first hit.
type MultiMappingStore struct {
	Sources []MappingStore
}

func NewMultiMappingStore(sources ...MappingStore) *MultiMappingStore {
	return &MultiMappingStore{Sources: sources}
}

func (s *MultiMappingStore) LIDForPN(ctx context.Context, user string) (string, error) {
	for _, src := range s.Sources {
		if src == nil {
			continue
		}
		if mapped, err := src.LIDForPN(ctx, user); err == nil && mapped != "" {
			return mapped, nil
		}
	}
	return "", nil
}

func (s *MultiMappingStore) PNForLID(ctx context.Context, user string) (string, error) {
	for _, src := range s.Sources {
		if src == nil {
			continue
		}
		if mapped, err := src.PNForLID(ctx, user); err == nil && mapped != "" {
			return mapped, nil
		}
	}
	return "", nil
}
