package services

import "github.com/ahmadmdabit/MeetingSystem-sub001/types"

// Authorization rules for meetings and attachments. These are pure decision
// functions over snapshots; every call site goes through them instead of
// re-deriving role or ownership checks inline.

// CanManageMeeting reports whether the actor may update, cancel, or delete
// the meeting: its organizer, or any Admin.
func CanManageMeeting(actor types.Actor, meeting types.Meeting) bool {
	return actor.ID == meeting.OrganizerID || actor.HasRole(types.RoleAdmin)
}

// CanViewMeeting reports whether the actor may read the meeting and its
// attachments: any participant, the organizer, or an Admin.
func CanViewMeeting(actor types.Actor, meeting types.Meeting, participantIDs []int64) bool {
	return CanManageMeeting(actor, meeting) || containsID(participantIDs, actor.ID)
}

// CanUploadFile reports whether the actor may attach files to the meeting.
// The organizer counts as a participant whether or not a join row exists.
func CanUploadFile(actor types.Actor, meeting types.Meeting, participantIDs []int64) bool {
	if actor.ID == meeting.OrganizerID {
		return true
	}
	return containsID(participantIDs, actor.ID)
}

// CanDeleteFile reports whether the actor may delete the attachment: the
// meeting's organizer, the file's uploader, or an Admin.
func CanDeleteFile(actor types.Actor, meeting types.Meeting, file types.MeetingFile) bool {
	return actor.ID == meeting.OrganizerID ||
		actor.ID == file.UploadedBy ||
		actor.HasRole(types.RoleAdmin)
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
