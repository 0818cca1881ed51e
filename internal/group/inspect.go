package group

import (
	"encoding/json"

	"github.com/cairnmsg/mlscore/internal/mlserr"
	"github.com/cairnmsg/mlscore/internal/session"
)

// memberView is the JSON shape get_members reports for each active
// member, per spec.md §4.6.
type memberView struct {
	Index        uint32 `json:"index"`
	Identity     []byte `json:"identity"`
	SignatureKey []byte `json:"signature_key"`
}

// GetEpoch returns the group's current epoch number.
func GetEpoch(sess *session.Session, groupID []byte) (uint64, error) {
	s, err := loadState(sess.Provider.Storage(), groupID)
	if err != nil {
		return 0, err
	}
	return s.Epoch, nil
}

// GetMembers returns the group's active membership as a JSON array of
// {index, identity, signature_key}, per spec.md §4.6. Removed members
// stay in storage as tombstones so the epoch history remains
// consistent, but they are never reported here.
func GetMembers(sess *session.Session, groupID []byte) (string, error) {
	s, err := loadState(sess.Provider.Storage(), groupID)
	if err != nil {
		return "", err
	}
	views := make([]memberView, 0, len(s.Members))
	for _, m := range s.Members {
		if !m.Active {
			continue
		}
		views = append(views, memberView{
			Index:        m.LeafIndex,
			Identity:     m.Identity,
			SignatureKey: m.SignatureKey,
		})
	}
	out, err := json.Marshal(views)
	if err != nil {
		return "", mlserr.New(mlserr.SerializeError, "marshal member list: %v", err)
	}
	return string(out), nil
}
