package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"wallhub/internal/gateway"
	"wallhub/internal/models"
	"wallhub/internal/notifications"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Operation names recorded by MemoryBackend and accepted by FailOn.
const (
	OpGetSession     = "auth.get_session"
	OpSignIn         = "auth.sign_in"
	OpSignUp         = "auth.sign_up"
	OpSignOut        = "auth.sign_out"
	OpListImages     = "images.list"
	OpInsertImage    = "images.insert"
	OpDeleteImage    = "images.delete"
	OpGetProfile     = "profiles.get"
	OpInsertProfile  = "profiles.insert"
	OpUpdateProfile  = "profiles.update"
	OpInsertLike     = "likes.insert"
	OpDeleteLike     = "likes.delete"
	OpUploadObject   = "objects.upload"
	OpRemoveObjects  = "objects.remove"
	OpLikeCount      = "rpc.get_image_like_count"
	OpUserLiked      = "rpc.user_liked_image"
	OpIncrementCount = "rpc.increment_user_uploads"
)

// ErrInvalidCredentials is returned by SignInWithPassword for unknown accounts.
var ErrInvalidCredentials = errors.New("invalid login credentials")

type account struct {
	password string
	user     *models.User
}

// MemoryBackend is an in-memory implementation of every gateway capability.
// Failures are injected per operation with FailOn; GetSessionFn replaces the
// session lookup entirely, e.g. to block until a test releases it.
type MemoryBackend struct {
	mu       sync.Mutex
	hub      *notifications.AuthHub
	session  *models.Session
	accounts map[string]account
	images   []models.Image
	profiles map[string]*models.UserProfile
	likes    map[string]map[string]struct{}
	objects  map[string]string
	uploads  map[string]int
	fail     map[string]error
	calls    []string

	GetSessionFn func(ctx context.Context) (*models.Session, error)
	Now          func() time.Time
}

// NewMemoryBackend returns an empty backend with no session.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		hub:      notifications.NewAuthHub(),
		accounts: make(map[string]account),
		profiles: make(map[string]*models.UserProfile),
		likes:    make(map[string]map[string]struct{}),
		objects:  make(map[string]string),
		uploads:  make(map[string]int),
		fail:     make(map[string]error),
		Now:      time.Now,
	}
}

// Backend exposes the capabilities as a gateway.Backend.
func (b *MemoryBackend) Backend() gateway.Backend {
	return gateway.Backend{
		Auth:     memAuth{b},
		Images:   memImages{b},
		Profiles: memProfiles{b},
		Likes:    memLikes{b},
		Objects:  memObjects{b},
		RPC:      memRPC{b},
	}
}

// FailOn makes every later call to op return err. A nil err clears it.
func (b *MemoryBackend) FailOn(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.fail, op)
		return
	}
	b.fail[op] = err
}

// Calls returns the operations invoked so far, in order.
func (b *MemoryBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// CallCount returns how many times op was invoked.
func (b *MemoryBackend) CallCount(op string) int {
	n := 0
	for _, c := range b.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

// AddAccount registers credentials that SignInWithPassword accepts.
func (b *MemoryBackend) AddAccount(email, password string) *models.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := &models.User{ID: uuid.NewString(), Email: email}
	b.accounts[email] = account{password: password, user: u}
	return u
}

// SetSession replaces the current session without emitting an event.
func (b *MemoryBackend) SetSession(s *models.Session) {
	b.mu.Lock()
	b.session = s
	b.mu.Unlock()
}

// Emit pushes an auth event to subscribers, as the auth service would.
func (b *MemoryBackend) Emit(event models.AuthEvent, s *models.Session) {
	b.hub.Publish(event, s)
}

// Subscribers returns the number of auth listeners.
func (b *MemoryBackend) Subscribers() int {
	return b.hub.Len()
}

// SeedImages appends rows to the images table.
func (b *MemoryBackend) SeedImages(rows ...models.Image) {
	b.mu.Lock()
	b.images = append(b.images, rows...)
	b.mu.Unlock()
}

// Images returns the stored rows, newest first.
func (b *MemoryBackend) Images() []models.Image {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortedImagesLocked()
}

// SeedProfile stores a profile row.
func (b *MemoryBackend) SeedProfile(p *models.UserProfile) {
	b.mu.Lock()
	cp := *p
	b.profiles[p.UserID] = &cp
	b.mu.Unlock()
}

// StoredProfile returns the profile row for userID, if any.
func (b *MemoryBackend) StoredProfile(userID string) (*models.UserProfile, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[userID]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// SeedLike records that userID likes imageID.
func (b *MemoryBackend) SeedLike(imageID, userID string) {
	b.mu.Lock()
	b.likeSetLocked(imageID)[userID] = struct{}{}
	b.mu.Unlock()
}

// LikeCount returns the stored like count for imageID.
func (b *MemoryBackend) LikeCount(imageID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.likes[imageID])
}

// ObjectKeys returns the stored object keys in lexical order.
func (b *MemoryBackend) ObjectKeys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.objects))
	for k := range b.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ObjectContentType returns the content type an object was stored with.
func (b *MemoryBackend) ObjectContentType(key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.objects[key]
}

// UploadCount returns the upload counter for userID.
func (b *MemoryBackend) UploadCount(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploads[userID]
}

func (b *MemoryBackend) enter(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, op)
	return b.fail[op]
}

func (b *MemoryBackend) sortedImagesLocked() []models.Image {
	out := append([]models.Image(nil), b.images...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (b *MemoryBackend) likeSetLocked(imageID string) map[string]struct{} {
	set, ok := b.likes[imageID]
	if !ok {
		set = make(map[string]struct{})
		b.likes[imageID] = set
	}
	return set
}

type memAuth struct{ b *MemoryBackend }

func (a memAuth) GetSession(ctx context.Context) (*models.Session, error) {
	if err := a.b.enter(OpGetSession); err != nil {
		return nil, err
	}
	if a.b.GetSessionFn != nil {
		return a.b.GetSessionFn(ctx)
	}
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	return a.b.session, nil
}

func (a memAuth) SignInWithPassword(_ context.Context, email, password string) (*models.Session, error) {
	if err := a.b.enter(OpSignIn); err != nil {
		return nil, err
	}
	a.b.mu.Lock()
	acc, ok := a.b.accounts[email]
	if !ok || acc.password != password {
		a.b.mu.Unlock()
		return nil, ErrInvalidCredentials
	}
	s := FakeSession(acc.user)
	a.b.session = s
	a.b.mu.Unlock()

	a.b.hub.Publish(models.EventSignedIn, s)
	return s, nil
}

func (a memAuth) SignUp(_ context.Context, email, password string) (*models.Session, error) {
	if err := a.b.enter(OpSignUp); err != nil {
		return nil, err
	}
	a.b.mu.Lock()
	if _, exists := a.b.accounts[email]; exists {
		a.b.mu.Unlock()
		return nil, errors.New("User already registered")
	}
	u := &models.User{ID: uuid.NewString(), Email: email}
	a.b.accounts[email] = account{password: password, user: u}
	s := FakeSession(u)
	a.b.session = s
	a.b.mu.Unlock()

	a.b.hub.Publish(models.EventSignedIn, s)
	return s, nil
}

func (a memAuth) SignOut(context.Context) error {
	if err := a.b.enter(OpSignOut); err != nil {
		return err
	}
	a.b.mu.Lock()
	a.b.session = nil
	a.b.mu.Unlock()

	a.b.hub.Publish(models.EventSignedOut, nil)
	return nil
}

func (a memAuth) OnAuthStateChange(fn gateway.AuthListener) func() {
	return a.b.hub.Subscribe(notifications.AuthListener(fn))
}

type memImages struct{ b *MemoryBackend }

func (m memImages) List(_ context.Context, filter gateway.ImageFilter) ([]models.Image, error) {
	if err := m.b.enter(OpListImages); err != nil {
		return nil, err
	}
	m.b.mu.Lock()
	defer m.b.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]models.Image, 0, len(m.b.images))
	for _, img := range m.b.sortedImagesLocked() {
		if filter.UploadedBy != "" && (img.UploadedBy == nil || *img.UploadedBy != filter.UploadedBy) {
			continue
		}
		if q != "" && !rowMatches(img, q) {
			continue
		}
		out = append(out, img)
	}
	return out, nil
}

// rowMatches mirrors the backend query: title or description ILIKE, or an
// element of the lowercase tag list.
func rowMatches(img models.Image, q string) bool {
	if strings.Contains(strings.ToLower(img.Title), q) {
		return true
	}
	if img.Description != nil && strings.Contains(strings.ToLower(*img.Description), q) {
		return true
	}
	for _, tag := range img.Tags {
		if tag == q {
			return true
		}
	}
	return false
}

func (m memImages) Insert(_ context.Context, in models.NewImage) (*models.Image, error) {
	if err := m.b.enter(OpInsertImage); err != nil {
		return nil, err
	}
	row := in.Record()
	row.ID = uuid.NewString()
	row.CreatedAt = m.b.Now().UTC()
	row.UpdatedAt = row.CreatedAt
	if row.Tags == nil {
		row.Tags = pq.StringArray{}
	}

	m.b.mu.Lock()
	m.b.images = append(m.b.images, *row)
	m.b.mu.Unlock()
	return row, nil
}

func (m memImages) Delete(_ context.Context, id string) error {
	if err := m.b.enter(OpDeleteImage); err != nil {
		return err
	}
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	kept := m.b.images[:0]
	for _, img := range m.b.images {
		if img.ID != id {
			kept = append(kept, img)
		}
	}
	m.b.images = kept
	return nil
}

type memProfiles struct{ b *MemoryBackend }

func (m memProfiles) GetByUserID(_ context.Context, userID string) (*models.UserProfile, error) {
	if err := m.b.enter(OpGetProfile); err != nil {
		return nil, err
	}
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	p, ok := m.b.profiles[userID]
	if !ok {
		return nil, gateway.NotFound("JSON object requested, multiple (or no) rows returned")
	}
	cp := *p
	return &cp, nil
}

func (m memProfiles) Insert(_ context.Context, p *models.UserProfile) (*models.UserProfile, error) {
	if err := m.b.enter(OpInsertProfile); err != nil {
		return nil, err
	}
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if _, exists := m.b.profiles[p.UserID]; exists {
		return nil, &gateway.Error{Status: 409, Code: gateway.CodeUniqueViolation, Message: "duplicate key value violates unique constraint"}
	}
	row := *p
	row.ID = uuid.NewString()
	row.CreatedAt = m.b.Now().UTC()
	row.UpdatedAt = row.CreatedAt
	m.b.profiles[p.UserID] = &row
	cp := row
	return &cp, nil
}

func (m memProfiles) Update(_ context.Context, userID string, patch models.ProfilePatch) (*models.UserProfile, error) {
	if err := m.b.enter(OpUpdateProfile); err != nil {
		return nil, err
	}
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	p, ok := m.b.profiles[userID]
	if !ok {
		return nil, gateway.NotFound("JSON object requested, multiple (or no) rows returned")
	}
	if patch.Username != nil {
		p.Username = patch.Username
	}
	if patch.FullName != nil {
		p.FullName = patch.FullName
	}
	if patch.Bio != nil {
		p.Bio = patch.Bio
	}
	if patch.Website != nil {
		p.Website = patch.Website
	}
	p.UpdatedAt = m.b.Now().UTC()
	cp := *p
	return &cp, nil
}

type memLikes struct{ b *MemoryBackend }

func (m memLikes) Insert(_ context.Context, imageID, userID string) error {
	if err := m.b.enter(OpInsertLike); err != nil {
		return err
	}
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	set := m.b.likeSetLocked(imageID)
	if _, exists := set[userID]; exists {
		return &gateway.Error{Status: 409, Code: gateway.CodeUniqueViolation, Message: "duplicate key value violates unique constraint \"idx_image_user\""}
	}
	set[userID] = struct{}{}
	return nil
}

func (m memLikes) Delete(_ context.Context, imageID, userID string) error {
	if err := m.b.enter(OpDeleteLike); err != nil {
		return err
	}
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	set := m.b.likeSetLocked(imageID)
	if _, exists := set[userID]; !exists {
		return gateway.NotFound("like not found")
	}
	delete(set, userID)
	return nil
}

type memObjects struct{ b *MemoryBackend }

func (m memObjects) Upload(_ context.Context, key string, _ []byte, contentType string) error {
	if err := m.b.enter(OpUploadObject); err != nil {
		return err
	}
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if _, exists := m.b.objects[key]; exists {
		return &gateway.Error{Status: 409, Code: "Duplicate", Message: "The resource already exists"}
	}
	m.b.objects[key] = contentType
	return nil
}

func (m memObjects) PublicURL(key string) string {
	return "https://storage.test/object/public/wallpaper-images/" + key
}

func (m memObjects) Remove(_ context.Context, keys ...string) error {
	if err := m.b.enter(OpRemoveObjects); err != nil {
		return err
	}
	m.b.mu.Lock()
	for _, k := range keys {
		delete(m.b.objects, k)
	}
	m.b.mu.Unlock()
	return nil
}

type memRPC struct{ b *MemoryBackend }

func (m memRPC) ImageLikeCount(_ context.Context, imageID string) (int, error) {
	if err := m.b.enter(OpLikeCount); err != nil {
		return 0, err
	}
	return m.b.LikeCount(imageID), nil
}

func (m memRPC) UserLikedImage(_ context.Context, imageID, userID string) (bool, error) {
	if err := m.b.enter(OpUserLiked); err != nil {
		return false, err
	}
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	_, ok := m.b.likes[imageID][userID]
	return ok, nil
}

func (m memRPC) IncrementUserUploads(_ context.Context, userID string) error {
	if err := m.b.enter(OpIncrementCount); err != nil {
		return err
	}
	m.b.mu.Lock()
	b := m.b
	b.uploads[userID]++
	if p, ok := b.profiles[userID]; ok {
		p.TotalUploads++
	}
	b.mu.Unlock()
	return nil
}
