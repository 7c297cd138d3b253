package app

import (
	"context"
	"io"
	"slices"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"ylabs/internal/common"
	"ylabs/internal/domain/analytics"
	"ylabs/internal/domain/application"
	"ylabs/internal/domain/listing"
	"ylabs/internal/domain/user"
	"ylabs/internal/integration/directory"
	"ylabs/internal/integration/mail"
)

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*user.User
	activity map[string]int
	logins   map[string]int
}

func newFakeUserRepo(seed ...user.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*user.User{}, activity: map[string]int{}, logins: map[string]int{}}
	for _, u := range seed {
		if u.OwnListings == nil {
			u.OwnListings = []bson.ObjectID{}
		}
		if u.FavListings == nil {
			u.FavListings = []bson.ObjectID{}
		}
		r.users[u.NetID] = &u
	}
	return r
}

func cloneUser(u *user.User) *user.User {
	out := *u
	out.OwnListings = slices.Clone(u.OwnListings)
	out.FavListings = slices.Clone(u.FavListings)
	out.Major = slices.Clone(u.Major)
	out.Departments = slices.Clone(u.Departments)
	return &out
}

func errUserNotFound() error {
	return common.NewError(common.CodeNotFound, "User not found", nil)
}

func (r *fakeUserRepo) get(netid string) *user.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.users[netid]; u != nil {
		return cloneUser(u)
	}
	return nil
}

func (r *fakeUserRepo) Get(ctx context.Context, netid string) (*user.User, error) {
	if u := r.get(netid); u != nil {
		return u, nil
	}
	return nil, errUserNotFound()
}

func (r *fakeUserRepo) Create(ctx context.Context, u user.User) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.NetID]; ok {
		return nil, common.NewError(common.CodeConflict, "Duplicate key error", nil)
	}
	r.users[u.NetID] = cloneUser(&u)
	return cloneUser(&u), nil
}

func (r *fakeUserRepo) modify(netid string, fn func(u *user.User)) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[netid]
	if u == nil {
		return nil, errUserNotFound()
	}
	fn(u)
	return cloneUser(u), nil
}

func (r *fakeUserRepo) Update(ctx context.Context, netid string, patch user.Patch) (*user.User, error) {
	return r.modify(netid, func(u *user.User) {
		if patch.FirstName != nil {
			u.FirstName = *patch.FirstName
		}
		if patch.LastName != nil {
			u.LastName = *patch.LastName
		}
		if patch.Email != nil {
			u.Email = *patch.Email
		}
		if patch.College != nil {
			u.College = *patch.College
		}
		if patch.Year != nil {
			u.Year = *patch.Year
		}
		if patch.Major != nil {
			u.Major = *patch.Major
		}
		if patch.Departments != nil {
			u.Departments = *patch.Departments
		}
	})
}

func (r *fakeUserRepo) Delete(ctx context.Context, netid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[netid]; !ok {
		return errUserNotFound()
	}
	delete(r.users, netid)
	return nil
}

func addToSet(list []bson.ObjectID, ids []bson.ObjectID) []bson.ObjectID {
	for _, id := range ids {
		if !slices.Contains(list, id) {
			list = append(list, id)
		}
	}
	return list
}

func pull(list []bson.ObjectID, ids []bson.ObjectID) []bson.ObjectID {
	return slices.DeleteFunc(list, func(id bson.ObjectID) bool { return slices.Contains(ids, id) })
}

func (r *fakeUserRepo) AddOwnListings(ctx context.Context, netid string, ids []bson.ObjectID) error {
	_, err := r.modify(netid, func(u *user.User) { u.OwnListings = addToSet(u.OwnListings, ids) })
	return err
}

func (r *fakeUserRepo) RemoveOwnListings(ctx context.Context, netid string, ids []bson.ObjectID) error {
	_, err := r.modify(netid, func(u *user.User) { u.OwnListings = pull(u.OwnListings, ids) })
	return err
}

func (r *fakeUserRepo) AddFavListings(ctx context.Context, netid string, ids []bson.ObjectID) (*user.User, error) {
	return r.modify(netid, func(u *user.User) { u.FavListings = addToSet(u.FavListings, ids) })
}

func (r *fakeUserRepo) RemoveFavListings(ctx context.Context, netid string, ids []bson.ObjectID) (*user.User, error) {
	return r.modify(netid, func(u *user.User) { u.FavListings = pull(u.FavListings, ids) })
}

func (r *fakeUserRepo) SetListings(ctx context.Context, netid string, own, fav []bson.ObjectID) error {
	_, err := r.modify(netid, func(u *user.User) {
		u.OwnListings = slices.Clone(own)
		u.FavListings = slices.Clone(fav)
	})
	return err
}

func (r *fakeUserRepo) SetConfirmed(ctx context.Context, netid string, confirmed bool) (*user.User, error) {
	return r.modify(netid, func(u *user.User) { u.UserConfirmed = confirmed })
}

func (r *fakeUserRepo) SetResumeURL(ctx context.Context, netid, url string) (*user.User, error) {
	return r.modify(netid, func(u *user.User) { u.ResumeURL = url })
}

func (r *fakeUserRepo) TouchActivity(ctx context.Context, netid string, at time.Time, login bool) error {
	_, err := r.modify(netid, func(u *user.User) {
		u.LastActive = &at
		r.activity[netid]++
		if login {
			u.LoginCount++
			r.logins[netid]++
		}
	})
	return err
}

type fakeUserBackups struct {
	mu      sync.Mutex
	backups map[string]user.Backup
}

func newFakeUserBackups() *fakeUserBackups {
	return &fakeUserBackups{backups: map[string]user.Backup{}}
}

func (r *fakeUserBackups) Upsert(ctx context.Context, backup user.Backup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backups[backup.NetID] = backup
	return nil
}

func (r *fakeUserBackups) List(ctx context.Context) ([]user.Backup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]user.Backup, 0, len(r.backups))
	for _, b := range r.backups {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeletedAt.After(out[j].DeletedAt) })
	return out, nil
}

func (r *fakeUserBackups) Get(ctx context.Context, netid string) (*user.Backup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.backups[netid]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "Backup not found", nil)
	}
	return &b, nil
}

type fakeListingRepo struct {
	mu       sync.Mutex
	listings map[bson.ObjectID]*listing.Listing
	queries  []listing.SearchQuery
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: map[bson.ObjectID]*listing.Listing{}}
}

func errListingNotFound(id bson.ObjectID) error {
	return common.NewError(common.CodeNotFound, "Listing not found with ObjectId: "+id.Hex(), nil)
}

func (r *fakeListingRepo) get(id bson.ObjectID) *listing.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l := r.listings[id]; l != nil {
		out := *l
		return &out
	}
	return nil
}

// put stores l as is and returns its id.
func (r *fakeListingRepo) put(l listing.Listing) bson.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID.IsZero() {
		l.ID = bson.NewObjectID()
	}
	r.listings[l.ID] = &l
	return l.ID
}

func (r *fakeListingRepo) Create(ctx context.Context, l listing.Listing) (*listing.Listing, error) {
	now := time.Now().UTC()
	l.ID = bson.NewObjectID()
	l.CreatedAt, l.UpdatedAt = now, now
	r.put(l)
	return &l, nil
}

func (r *fakeListingRepo) GetByID(ctx context.Context, id bson.ObjectID) (*listing.Listing, error) {
	if l := r.get(id); l != nil {
		return l, nil
	}
	return nil, errListingNotFound(id)
}

func (r *fakeListingRepo) GetMany(ctx context.Context, ids []bson.ObjectID) ([]listing.Listing, error) {
	out := []listing.Listing{}
	for _, id := range ids {
		if l := r.get(id); l != nil {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeListingRepo) modify(id bson.ObjectID, fn func(l *listing.Listing)) (*listing.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.listings[id]
	if l == nil {
		return nil, errListingNotFound(id)
	}
	fn(l)
	out := *l
	return &out, nil
}

func (r *fakeListingRepo) Update(ctx context.Context, id bson.ObjectID, patch listing.Patch) (*listing.Listing, error) {
	return r.modify(id, func(l *listing.Listing) {
		*l = patch.Apply(*l)
		l.UpdatedAt = time.Now().UTC()
	})
}

func (r *fakeListingRepo) IncrementViews(ctx context.Context, id bson.ObjectID) (*listing.Listing, error) {
	return r.modify(id, func(l *listing.Listing) { l.Views++ })
}

func (r *fakeListingRepo) AdjustFavorites(ctx context.Context, id bson.ObjectID, delta int) error {
	_, err := r.modify(id, func(l *listing.Listing) { l.Favorites = max(0, l.Favorites+delta) })
	return err
}

func (r *fakeListingRepo) SetConfirmedByOwner(ctx context.Context, ownerID string, confirmed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.listings {
		if l.OwnerID == ownerID {
			l.Confirmed = confirmed
		}
	}
	return nil
}

func (r *fakeListingRepo) Delete(ctx context.Context, id bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[id]; !ok {
		return errListingNotFound(id)
	}
	delete(r.listings, id)
	return nil
}

func (r *fakeListingRepo) Search(ctx context.Context, q listing.SearchQuery) ([]listing.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
	var out []listing.Listing
	for _, l := range r.listings {
		if !l.Archived && l.Confirmed {
			out = append(out, *l)
		}
	}
	return out, nil
}

type fakeListingBackups struct {
	mu      sync.Mutex
	backups []listing.Backup
}

func (r *fakeListingBackups) Create(ctx context.Context, backup listing.Backup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backups = append(r.backups, backup)
	return nil
}

type fakeApplicationRepo struct {
	mu   sync.Mutex
	apps map[string]*application.Application
	// createErr, when set, fails Create as if another request won the
	// unique index race.
	createErr error
}

func newFakeApplicationRepo() *fakeApplicationRepo {
	return &fakeApplicationRepo{apps: map[string]*application.Application{}}
}

func errApplicationNotFound() error {
	return common.NewError(common.CodeNotFound, "Application not found", nil)
}

func (r *fakeApplicationRepo) Create(ctx context.Context, a application.Application) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.apps {
		if existing.ListingID == a.ListingID && existing.StudentID == a.StudentID {
			return nil, common.NewError(common.CodeConflict, "Duplicate key error", nil)
		}
	}
	stored := a
	r.apps[a.ID] = &stored
	return &a, nil
}

func (r *fakeApplicationRepo) GetByID(ctx context.Context, id string) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.apps[id]
	if a == nil {
		return nil, errApplicationNotFound()
	}
	out := *a
	return &out, nil
}

func (r *fakeApplicationRepo) FindByListingAndStudent(ctx context.Context, listingID bson.ObjectID, studentID string) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.apps {
		if a.ListingID == listingID && a.StudentID == studentID {
			out := *a
			return &out, nil
		}
	}
	return nil, errApplicationNotFound()
}

func (r *fakeApplicationRepo) filter(keep func(a *application.Application) bool) []application.Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []application.Application
	for _, a := range r.apps {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.After(out[j].AppliedAt) })
	return out
}

func (r *fakeApplicationRepo) ListByListing(ctx context.Context, listingID bson.ObjectID, status application.Status) ([]application.Application, error) {
	return r.filter(func(a *application.Application) bool {
		return a.ListingID == listingID && (status == "" || a.Status == status)
	}), nil
}

func (r *fakeApplicationRepo) ListByStudent(ctx context.Context, studentID string) ([]application.Application, error) {
	return r.filter(func(a *application.Application) bool { return a.StudentID == studentID }), nil
}

func (r *fakeApplicationRepo) UpdateStatus(ctx context.Context, id string, status application.Status, notes *string) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.apps[id]
	if a == nil {
		return nil, errApplicationNotFound()
	}
	a.Status = status
	if notes != nil {
		a.ProfessorNotes = *notes
	}
	out := *a
	return &out, nil
}

func (r *fakeApplicationRepo) CountByStatus(ctx context.Context, listingID bson.ObjectID) (map[application.Status]int, error) {
	counts := map[application.Status]int{}
	for _, a := range r.filter(func(a *application.Application) bool { return a.ListingID == listingID }) {
		counts[a.Status]++
	}
	return counts, nil
}

type fakeAnalyticsRepo struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (r *fakeAnalyticsRepo) Create(ctx context.Context, event analytics.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *fakeAnalyticsRepo) types() []analytics.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]analytics.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeDirectory struct {
	people map[string]directory.Person
}

func (d fakeDirectory) Lookup(ctx context.Context, netid string) (*directory.Person, error) {
	p, ok := d.people[netid]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "person not found", nil)
	}
	return &p, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (n *fakeNotifier) Send(ctx context.Context, msg mail.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

type fakeResumes struct {
	saved   int
	removed []string
}

func (s *fakeResumes) Save(ctx context.Context, ext string, content io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, content); err != nil {
		return "", err
	}
	s.saved++
	return "/uploads/resumes/resume-test" + ext, nil
}

func (s *fakeResumes) Remove(ctx context.Context, url string) error {
	s.removed = append(s.removed, url)
	return nil
}

func professor(netid string) user.User {
	return user.User{
		NetID:         netid,
		FirstName:     "Prof",
		LastName:      netid,
		Email:         netid + "@yale.edu",
		UserType:      user.TypeProfessor,
		UserConfirmed: true,
	}
}

func student(netid string) user.User {
	return user.User{
		NetID:     netid,
		FirstName: "Student",
		LastName:  netid,
		Email:     netid + "@yale.edu",
		UserType:  user.TypeUndergraduate,
	}
}

// fixture wires every service over fresh fakes.
type fixture struct {
	users        *fakeUserRepo
	userBackups  *fakeUserBackups
	listings     *fakeListingRepo
	listingBacks *fakeListingBackups
	apps         *fakeApplicationRepo
	events       *fakeAnalyticsRepo
	notifier     *fakeNotifier
	resumes      *fakeResumes
	analytics    *AnalyticsLogger

	listingService     *ListingService
	userService        *UserService
	applicationService *ApplicationService
}

func newFixture(dir Directory, seed ...user.User) *fixture {
	f := &fixture{
		users:        newFakeUserRepo(seed...),
		userBackups:  newFakeUserBackups(),
		listings:     newFakeListingRepo(),
		listingBacks: &fakeListingBackups{},
		apps:         newFakeApplicationRepo(),
		events:       &fakeAnalyticsRepo{},
		notifier:     &fakeNotifier{},
		resumes:      &fakeResumes{},
	}
	f.analytics = NewAnalyticsLogger(f.events, f.users, nil)
	ownership := NewOwnershipService(f.users, dir, nil)
	f.listingService = NewListingService(f.listings, f.listingBacks, ownership, nil, f.analytics, NewSynonyms(nil))
	f.userService = NewUserService(f.users, f.userBackups, f.listings, ownership, nil, f.analytics)
	f.applicationService = NewApplicationService(f.apps, f.listings, f.users, f.resumes, f.notifier, "https://labs.example.edu/", nil)
	return f
}

func (f *fixture) flush() {
	_ = f.analytics.Close(context.Background())
}
