package services

import (
	"testing"

	"github.com/ahmadmdabit/MeetingSystem-sub001/types"
	"github.com/stretchr/testify/assert"
)

func TestCanManageMeeting(t *testing.T) {
	meeting := types.Meeting{ID: 1, OrganizerID: 10}

	tests := []struct {
		name  string
		actor types.Actor
		want  bool
	}{
		{"organizer", types.Actor{ID: 10}, true},
		{"admin", types.Actor{ID: 99, Roles: []string{types.RoleAdmin}}, true},
		{"admin organizer", types.Actor{ID: 10, Roles: []string{types.RoleAdmin}}, true},
		{"plain participant", types.Actor{ID: 20, Roles: []string{types.RoleUser}}, false},
		{"stranger", types.Actor{ID: 30}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanManageMeeting(tt.actor, meeting))
		})
	}
}

func TestCanUploadFile(t *testing.T) {
	meeting := types.Meeting{ID: 1, OrganizerID: 10}
	participants := []int64{10, 20, 21}

	tests := []struct {
		name  string
		actor types.Actor
		want  bool
	}{
		{"participant", types.Actor{ID: 20}, true},
		{"organizer without row", types.Actor{ID: 10}, true},
		{"non-participant", types.Actor{ID: 30}, false},
		{"admin non-participant", types.Actor{ID: 30, Roles: []string{types.RoleAdmin}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := participants
			if tt.name == "organizer without row" {
				ids = []int64{20, 21}
			}
			assert.Equal(t, tt.want, CanUploadFile(tt.actor, meeting, ids))
		})
	}
}

func TestCanDeleteFile(t *testing.T) {
	meeting := types.Meeting{ID: 1, OrganizerID: 10}
	file := types.MeetingFile{ID: 5, MeetingID: 1, UploadedBy: 20}

	tests := []struct {
		name  string
		actor types.Actor
		want  bool
	}{
		{"organizer", types.Actor{ID: 10}, true},
		{"uploader", types.Actor{ID: 20}, true},
		{"admin", types.Actor{ID: 99, Roles: []string{types.RoleAdmin}}, true},
		{"other participant", types.Actor{ID: 21}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanDeleteFile(tt.actor, meeting, file))
		})
	}
}
