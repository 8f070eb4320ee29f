package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/services"
	"github.com/ahmadmdabit/MeetingSystem-sub001/types"
	"github.com/go-chi/chi/v5"
)

const maxMultipartMemory = 32 << 20

// MeetingHandler exposes meeting lifecycle, participant, and attachment
// endpoints.
type MeetingHandler struct {
	meetings *services.MeetingService
	files    *services.FileService
}

func NewMeetingHandler(meetings *services.MeetingService, files *services.FileService) *MeetingHandler {
	return &MeetingHandler{meetings: meetings, files: files}
}

// MeetingRouter registers meeting routes; the caller applies auth middleware.
func (h *MeetingHandler) MeetingRouter(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{meetingID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Post("/cancel", h.Cancel)
		r.Post("/participants", h.AddParticipant)
		r.Delete("/participants/{userID}", h.RemoveParticipant)
		r.Get("/files", h.ListFiles)
		r.Post("/files", h.UploadFiles)
		r.Delete("/files/{fileID}", h.RemoveFile)
	})
}

type MeetingUpsertRequest struct {
	Name              string    `json:"name" validate:"required"`
	Description       string    `json:"description" validate:"required"`
	StartsAt          time.Time `json:"starts_at" validate:"required"`
	EndsAt            time.Time `json:"ends_at" validate:"required"`
	ParticipantEmails []string  `json:"participant_emails"`
}

type AddParticipantRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	meetings, err := h.meetings.List(r.Context(), actor)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meetings)
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req MeetingUpsertRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	result, err := h.meetings.Create(r.Context(), actor, services.MeetingInput{
		Name:              req.Name,
		Description:       req.Description,
		StartsAt:          req.StartsAt,
		EndsAt:            req.EndsAt,
		ParticipantEmails: req.ParticipantEmails,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, meetingID, ok := h.actorAndMeeting(w, r)
	if !ok {
		return
	}

	result, err := h.meetings.Get(r.Context(), actor, meetingID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, meetingID, ok := h.actorAndMeeting(w, r)
	if !ok {
		return
	}

	var req MeetingUpsertRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	result, err := h.meetings.Update(r.Context(), actor, meetingID, services.MeetingInput{
		Name:              req.Name,
		Description:       req.Description,
		StartsAt:          req.StartsAt,
		EndsAt:            req.EndsAt,
		ParticipantEmails: req.ParticipantEmails,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *MeetingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, meetingID, ok := h.actorAndMeeting(w, r)
	if !ok {
		return
	}

	meeting, err := h.meetings.Cancel(r.Context(), actor, meetingID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, meetingID, ok := h.actorAndMeeting(w, r)
	if !ok {
		return
	}

	if err := h.meetings.Delete(r.Context(), actor, meetingID); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MeetingHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	actor, meetingID, ok := h.actorAndMeeting(w, r)
	if !ok {
		return
	}

	var req AddParticipantRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	participant, err := h.meetings.AddParticipant(r.Context(), actor, meetingID, req.Email)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, participant)
}

func (h *MeetingHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	actor, meetingID, ok := h.actorAndMeeting(w, r)
	if !ok {
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID < 1 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.meetings.RemoveParticipant(r.Context(), actor, meetingID, userID); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MeetingHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	actor, meetingID, ok := h.actorAndMeeting(w, r)
	if !ok {
		return
	}

	files, err := h.files.List(r.Context(), actor, meetingID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// UploadFiles attaches one or more multipart files ("files" field) to the
// meeting. Large payloads spill to disk via multipart parsing and stream to
// the object store; each file's outcome is reported independently.
func (h *MeetingHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	actor, meetingID, ok := h.actorAndMeeting(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	uploads := make([]services.Upload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read upload")
			return
		}
		defer file.Close()
		uploads = append(uploads, services.Upload{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Reader:      file,
		})
	}

	outcomes, err := h.files.Upload(r.Context(), actor, meetingID, uploads)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, outcomes)
}

func (h *MeetingHandler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	actor, meetingID, ok := h.actorAndMeeting(w, r)
	if !ok {
		return
	}

	fileID, err := strconv.ParseInt(chi.URLParam(r, "fileID"), 10, 64)
	if err != nil || fileID < 1 {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	if err := h.files.Remove(r.Context(), actor, meetingID, fileID); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MeetingHandler) actorAndMeeting(w http.ResponseWriter, r *http.Request) (actor types.Actor, meetingID int64, ok bool) {
	a, err := actorFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return a, 0, false
	}
	id, err := parseMeetingID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid meeting id")
		return a, 0, false
	}
	return a, id, true
}

func parseMeetingID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "meetingID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid meeting id")
	}
	return id, nil
}
