package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/scheduler"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/store"
	"github.com/ahmadmdabit/MeetingSystem-sub001/types"
)

// fakeMeetingRepo is an in-memory MeetingRepository.
type fakeMeetingRepo struct {
	mu           sync.Mutex
	meetings     map[int64]types.Meeting
	participants map[int64][]types.MeetingParticipant
	nextID       int64
}

func newFakeMeetingRepo() *fakeMeetingRepo {
	return &fakeMeetingRepo{
		meetings:     make(map[int64]types.Meeting),
		participants: make(map[int64][]types.MeetingParticipant),
	}
}

func (f *fakeMeetingRepo) Get(_ context.Context, id int64) (types.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meetings[id]
	if !ok {
		return types.Meeting{}, store.ErrNotFound
	}
	return m, nil
}

func (f *fakeMeetingRepo) ListByUser(_ context.Context, userID int64) ([]types.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Meeting
	for id, m := range f.meetings {
		if m.OrganizerID == userID {
			out = append(out, m)
			continue
		}
		for _, p := range f.participants[id] {
			if p.UserID == userID {
				out = append(out, m)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (f *fakeMeetingRepo) Create(_ context.Context, meeting types.Meeting, participantIDs []int64) (types.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	meeting.ID = f.nextID
	meeting.CreatedAt = time.Now().UTC()
	f.meetings[meeting.ID] = meeting

	f.addRow(meeting.ID, meeting.OrganizerID, types.ParticipantLabelOrganizer)
	for _, id := range participantIDs {
		if id == meeting.OrganizerID {
			continue
		}
		f.addRow(meeting.ID, id, types.ParticipantLabelParticipant)
	}
	return meeting, nil
}

func (f *fakeMeetingRepo) Update(_ context.Context, meeting types.Meeting, participantIDs []int64) (types.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.meetings[meeting.ID]
	if !ok {
		return types.Meeting{}, store.ErrNotFound
	}
	stored.Name = meeting.Name
	stored.Description = meeting.Description
	stored.StartsAt = meeting.StartsAt
	stored.EndsAt = meeting.EndsAt
	f.meetings[meeting.ID] = stored

	keep := map[int64]bool{stored.OrganizerID: true}
	for _, id := range participantIDs {
		keep[id] = true
	}
	var kept []types.MeetingParticipant
	for _, p := range f.participants[meeting.ID] {
		if keep[p.UserID] {
			kept = append(kept, p)
			delete(keep, p.UserID)
		}
	}
	f.participants[meeting.ID] = kept
	for id := range keep {
		label := types.ParticipantLabelParticipant
		if id == stored.OrganizerID {
			label = types.ParticipantLabelOrganizer
		}
		f.addRow(meeting.ID, id, label)
	}
	return stored, nil
}

func (f *fakeMeetingRepo) Cancel(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meetings[id]
	if !ok || m.IsCanceled {
		return store.ErrNotFound
	}
	m.IsCanceled = true
	m.CanceledAt = &at
	f.meetings[id] = m
	return nil
}

func (f *fakeMeetingRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.meetings[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.meetings, id)
	delete(f.participants, id)
	return nil
}

func (f *fakeMeetingRepo) ListParticipants(_ context.Context, meetingID int64) ([]types.MeetingParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.MeetingParticipant(nil), f.participants[meetingID]...), nil
}

func (f *fakeMeetingRepo) IsParticipant(_ context.Context, meetingID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.participants[meetingID] {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMeetingRepo) AddParticipant(_ context.Context, p types.MeetingParticipant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.participants[p.MeetingID] {
		if existing.UserID == p.UserID {
			return store.ErrDuplicate
		}
	}
	f.participants[p.MeetingID] = append(f.participants[p.MeetingID], p)
	return nil
}

func (f *fakeMeetingRepo) RemoveParticipant(_ context.Context, meetingID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.participants[meetingID]
	for i, p := range rows {
		if p.UserID == userID {
			f.participants[meetingID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeMeetingRepo) addRow(meetingID, userID int64, label string) {
	f.participants[meetingID] = append(f.participants[meetingID], types.MeetingParticipant{
		MeetingID: meetingID,
		UserID:    userID,
		RoleLabel: label,
		JoinedAt:  time.Now().UTC(),
	})
}

// fakeUserDirectory resolves emails from a fixed map.
type fakeUserDirectory struct {
	byEmail map[string]types.User
}

func (f *fakeUserDirectory) GetByEmail(_ context.Context, email string) (types.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

// fakeScheduler records schedules and cancellations.
type fakeScheduler struct {
	mu        sync.Mutex
	next      scheduler.Handle
	scheduled map[scheduler.Handle]scheduledFire
	canceled  []scheduler.Handle
}

type scheduledFire struct {
	runAt     time.Time
	meetingID int64
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: make(map[scheduler.Handle]scheduledFire)}
}

func (f *fakeScheduler) Schedule(runAt time.Time, meetingID int64) scheduler.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.scheduled[f.next] = scheduledFire{runAt: runAt, meetingID: meetingID}
	return f.next
}

func (f *fakeScheduler) Cancel(handle scheduler.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scheduled, handle)
	f.canceled = append(f.canceled, handle)
}

func (f *fakeScheduler) pending() []scheduledFire {
	f.mu.Lock()
	defer f.mu.Unlock()
	var fires []scheduledFire
	for _, fire := range f.scheduled {
		fires = append(fires, fire)
	}
	return fires
}

// fakePurger records purge calls for meeting deletes.
type fakePurger struct {
	keys    map[int64][]string
	deleted []string
}

func (f *fakePurger) ListObjectKeys(_ context.Context, meetingID int64) ([]string, error) {
	return f.keys[meetingID], nil
}

func (f *fakePurger) DeleteObjects(_ context.Context, keys []string) {
	f.deleted = append(f.deleted, keys...)
}

// fakeFileRepo is an in-memory FileRepository.
type fakeFileRepo struct {
	mu        sync.Mutex
	files     map[int64]types.MeetingFile
	nextID    int64
	insertErr error
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[int64]types.MeetingFile)}
}

func (f *fakeFileRepo) GetByID(_ context.Context, id int64) (types.MeetingFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return types.MeetingFile{}, store.ErrNotFound
	}
	return file, nil
}

func (f *fakeFileRepo) Insert(_ context.Context, file types.MeetingFile) (types.MeetingFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return types.MeetingFile{}, f.insertErr
	}
	f.nextID++
	file.ID = f.nextID
	file.UploadedAt = time.Now().UTC()
	f.files[file.ID] = file
	return file, nil
}

func (f *fakeFileRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.files, id)
	return nil
}

func (f *fakeFileRepo) ListByMeeting(_ context.Context, meetingID int64) ([]types.MeetingFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.MeetingFile
	for _, file := range f.files {
		if file.MeetingID == meetingID {
			out = append(out, file)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeObjectStorage stores object bytes in a map.
type fakeObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	delErr  error
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: make(map[string][]byte)}
}

func (f *fakeObjectStorage) EnsureBucket(context.Context) error { return nil }

func (f *fakeObjectStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStorage) Delete(_ context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStorage) Bucket() string { return "fake" }

// fakeNotifier records reminder notifications and can fail for chosen
// addresses.
type fakeNotifier struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failFor: make(map[string]error)}
}

func (f *fakeNotifier) SendMeetingReminder(_ context.Context, email, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[email]; ok {
		return err
	}
	f.sent = append(f.sent, email)
	return nil
}
