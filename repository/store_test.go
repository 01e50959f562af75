package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"aistudio/model"
	"aistudio/repository"
	"aistudio/testsupport"
)

// forEachBackend runs fn against a fresh store of every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, store repository.Store)) {
	t.Helper()
	for name, store := range testsupport.Stores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			fn(t, store)
		})
	}
}

func TestCreateAssignsIncreasingIDs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "alice")
		var last int64
		for i := 0; i < 5; i++ {
			project := testsupport.NewProject(t, store, user.ID, "p")
			if project.ID <= last {
				t.Fatalf("id %d not greater than previous %d", project.ID, last)
			}
			last = project.ID
		}

		got, err := store.GetProject(ctx, last)
		if err != nil || got == nil {
			t.Fatalf("GetProject(%d) = %v, %v", last, got, err)
		}
		if got.BPM != model.DefaultBPM || got.TimeSignature != model.DefaultTimeSignature {
			t.Fatalf("defaults not applied: bpm=%d sig=%q", got.BPM, got.TimeSignature)
		}
		if got.UpdatedAt.Before(got.CreatedAt) {
			t.Fatalf("updatedAt %v before createdAt %v", got.UpdatedAt, got.CreatedAt)
		}
	})
}

func TestEveryEntityGetsIncreasingIDs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "owner")
		project := testsupport.NewProject(t, store, user.ID, "p")
		track := testsupport.NewTrack(t, store, project.ID, "Vox")

		creates := map[string]func(i int) (int64, error){
			"user": func(i int) (int64, error) {
				u, err := store.CreateUser(ctx, &model.User{Username: fmt.Sprintf("user-%d", i), PasswordHash: "x"})
				if err != nil {
					return 0, err
				}
				return u.ID, nil
			},
			"track": func(i int) (int64, error) {
				tr, err := store.CreateTrack(ctx, &model.Track{Name: "t", Type: model.TrackTypeDrums, ProjectID: project.ID})
				if err != nil {
					return 0, err
				}
				return tr.ID, nil
			},
			"clip": func(i int) (int64, error) {
				c, err := store.CreateAudioClip(ctx, &model.AudioClip{Name: "c", TrackID: track.ID, Path: "/c.wav", Duration: 100})
				if err != nil {
					return 0, err
				}
				return c.ID, nil
			},
			"effect": func(i int) (int64, error) {
				e, err := store.CreateEffect(ctx, &model.Effect{Name: "e", Type: model.EffectTypeReverb, TrackID: track.ID})
				if err != nil {
					return 0, err
				}
				return e.ID, nil
			},
			"mood tag": func(i int) (int64, error) {
				m, err := store.CreateMoodTag(ctx, &model.MoodTag{Name: fmt.Sprintf("tag-%d", i)})
				if err != nil {
					return 0, err
				}
				return m.ID, nil
			},
			"stem job": func(i int) (int64, error) {
				j, err := store.CreateStemSeparationJob(ctx, &model.StemSeparationJob{ProjectID: project.ID, OriginalPath: "/x.wav"})
				if err != nil {
					return 0, err
				}
				return j.ID, nil
			},
			"voice job": func(i int) (int64, error) {
				j, err := store.CreateVoiceCloningJob(ctx, &model.VoiceCloningJob{ProjectID: project.ID, SamplePath: "/s.wav", Text: "hi"})
				if err != nil {
					return 0, err
				}
				return j.ID, nil
			},
			"music job": func(i int) (int64, error) {
				j, err := store.CreateMusicGenerationJob(ctx, &model.MusicGenerationJob{ProjectID: project.ID, Prompt: "lofi"})
				if err != nil {
					return 0, err
				}
				return j.ID, nil
			},
		}
		for entity, create := range creates {
			var last int64
			for i := 0; i < 3; i++ {
				id, err := create(i)
				if err != nil {
					t.Fatalf("%s: create %d: %v", entity, i, err)
				}
				if id <= last {
					t.Fatalf("%s: id %d not greater than previous %d", entity, id, last)
				}
				last = id
			}
		}
	})
}

func TestConcurrentCreatesGetDistinctIDs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "alice")
		project := testsupport.NewProject(t, store, user.ID, "p")

		const workers = 25
		var (
			mu         sync.Mutex
			wg         sync.WaitGroup
			projectIDs = make(map[int64]bool)
			jobIDs     = make(map[int64]bool)
			errs       = make(chan error, 2*workers)
		)
		for i := 0; i < workers; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				p, err := store.CreateProject(ctx, &model.Project{Name: fmt.Sprintf("p-%d", i), UserID: user.ID})
				if err != nil {
					errs <- err
					return
				}
				mu.Lock()
				projectIDs[p.ID] = true
				mu.Unlock()
			}(i)
			go func() {
				defer wg.Done()
				j, err := store.CreateMusicGenerationJob(ctx, &model.MusicGenerationJob{ProjectID: project.ID, Prompt: "ambient"})
				if err != nil {
					errs <- err
					return
				}
				mu.Lock()
				jobIDs[j.ID] = true
				mu.Unlock()
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent create: %v", err)
		}
		if len(projectIDs) != workers {
			t.Fatalf("expected %d distinct project ids, got %d", workers, len(projectIDs))
		}
		if len(jobIDs) != workers {
			t.Fatalf("expected %d distinct job ids, got %d", workers, len(jobIDs))
		}
	})
}

func TestConcurrentPartialUpdatesKeepEveryField(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "alice")
		project := testsupport.NewProject(t, store, user.ID, "p")

		const rounds = 20
		var wg sync.WaitGroup
		errs := make(chan error, 2*rounds)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				name := fmt.Sprintf("name-%d", i)
				if _, err := store.UpdateProject(ctx, project.ID, model.ProjectPatch{Name: &name}); err != nil {
					errs <- err
				}
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				bpm := 100 + i
				if _, err := store.UpdateProject(ctx, project.ID, model.ProjectPatch{BPM: &bpm}); err != nil {
					errs <- err
				}
			}
		}()
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("UpdateProject: %v", err)
		}

		got, err := store.GetProject(ctx, project.ID)
		if err != nil || got == nil {
			t.Fatalf("GetProject = %v, %v", got, err)
		}
		if got.Name != fmt.Sprintf("name-%d", rounds-1) || got.BPM != 100+rounds-1 {
			t.Fatalf("lost update: name=%q bpm=%d", got.Name, got.BPM)
		}
	})
}

func TestGetMissingReturnsNil(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		if p, err := store.GetProject(ctx, 999); err != nil || p != nil {
			t.Fatalf("GetProject(999) = %v, %v", p, err)
		}
		if tr, err := store.GetTrack(ctx, 999); err != nil || tr != nil {
			t.Fatalf("GetTrack(999) = %v, %v", tr, err)
		}
		if j, err := store.GetStemSeparationJob(ctx, 999); err != nil || j != nil {
			t.Fatalf("GetStemSeparationJob(999) = %v, %v", j, err)
		}
		if u, err := store.GetUserByUsername(ctx, "nobody"); err != nil || u != nil {
			t.Fatalf("GetUserByUsername = %v, %v", u, err)
		}
	})
}

func TestUpdateMissingFailsWithNotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		name := "x"
		status := model.JobStatusProcessing
		updates := map[string]func() error{
			"project": func() error {
				_, err := store.UpdateProject(ctx, 999, model.ProjectPatch{Name: &name})
				return err
			},
			"track": func() error {
				_, err := store.UpdateTrack(ctx, 999, model.TrackPatch{Name: &name})
				return err
			},
			"clip": func() error {
				_, err := store.UpdateAudioClip(ctx, 999, model.AudioClipPatch{Name: &name})
				return err
			},
			"effect": func() error {
				_, err := store.UpdateEffect(ctx, 999, model.EffectPatch{Name: &name})
				return err
			},
			"mood tag": func() error {
				_, err := store.UpdateMoodTag(ctx, 999, model.MoodTagPatch{Name: &name})
				return err
			},
			"stem job": func() error {
				_, err := store.UpdateStemSeparationJob(ctx, 999, model.StemSeparationJobPatch{JobUpdate: model.JobUpdate{Status: &status}})
				return err
			},
			"voice job": func() error {
				_, err := store.UpdateVoiceCloningJob(ctx, 999, model.VoiceCloningJobPatch{JobUpdate: model.JobUpdate{Status: &status}})
				return err
			},
			"music job": func() error {
				_, err := store.UpdateMusicGenerationJob(ctx, 999, model.MusicGenerationJobPatch{JobUpdate: model.JobUpdate{Status: &status}})
				return err
			},
		}
		for entity, update := range updates {
			err := update()
			if !errors.Is(err, repository.ErrNotFound) {
				t.Fatalf("%s: expected ErrNotFound, got %v", entity, err)
			}
			var nf *repository.NotFoundError
			if !errors.As(err, &nf) || nf.ID != 999 {
				t.Fatalf("%s: expected NotFoundError for id 999, got %v", entity, err)
			}
		}
	})
}

func TestDeleteReportsWhetherRemoved(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "alice")
		project := testsupport.NewProject(t, store, user.ID, "p")
		track := testsupport.NewTrack(t, store, project.ID, "Vox")
		clip := testsupport.NewAudioClip(t, store, track.ID, 0, 500)
		effect, err := store.CreateEffect(ctx, &model.Effect{Name: "Comp", Type: model.EffectTypeCompressor, TrackID: track.ID})
		if err != nil {
			t.Fatalf("CreateEffect: %v", err)
		}
		tag, err := store.CreateMoodTag(ctx, &model.MoodTag{Name: "calm"})
		if err != nil {
			t.Fatalf("CreateMoodTag: %v", err)
		}

		// Children first so that no delete is satisfied by a cascade.
		deletes := []struct {
			entity string
			del    func() (bool, error)
		}{
			{"clip", func() (bool, error) { return store.DeleteAudioClip(ctx, clip.ID) }},
			{"effect", func() (bool, error) { return store.DeleteEffect(ctx, effect.ID) }},
			{"mood tag", func() (bool, error) { return store.DeleteMoodTag(ctx, tag.ID) }},
			{"track", func() (bool, error) { return store.DeleteTrack(ctx, track.ID) }},
			{"project", func() (bool, error) { return store.DeleteProject(ctx, project.ID) }},
		}
		for _, d := range deletes {
			removed, err := d.del()
			if err != nil || !removed {
				t.Fatalf("%s: first delete = %v, %v", d.entity, removed, err)
			}
			removed, err = d.del()
			if err != nil || removed {
				t.Fatalf("%s: second delete = %v, %v", d.entity, removed, err)
			}
		}
	})
}

func TestPartialUpdatePreservesUntouchedFields(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "alice")
		project := testsupport.NewProject(t, store, user.ID, "p")
		track := testsupport.NewTrack(t, store, project.ID, "Lead")

		volume := 50
		updated, err := store.UpdateTrack(ctx, track.ID, model.TrackPatch{Volume: &volume})
		if err != nil {
			t.Fatalf("UpdateTrack: %v", err)
		}
		if updated.Volume != 50 {
			t.Fatalf("expected volume 50, got %d", updated.Volume)
		}
		if updated.Name != track.Name || updated.Color != track.Color || updated.Type != track.Type || updated.ProjectID != track.ProjectID {
			t.Fatalf("untouched fields changed: before %+v after %+v", track, updated)
		}

		bpm := 90
		before, _ := store.GetProject(ctx, project.ID)
		after, err := store.UpdateProject(ctx, project.ID, model.ProjectPatch{BPM: &bpm})
		if err != nil {
			t.Fatalf("UpdateProject: %v", err)
		}
		if after.BPM != 90 || after.Name != before.Name || after.TimeSignature != before.TimeSignature {
			t.Fatalf("unexpected project after update: %+v", after)
		}
		if after.UpdatedAt.Before(before.UpdatedAt) {
			t.Fatalf("updatedAt went backwards: %v -> %v", before.UpdatedAt, after.UpdatedAt)
		}
	})
}

func TestClipOnTrackScenario(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "demo")
		project, err := store.CreateProject(ctx, &model.Project{Name: "Song", UserID: user.ID, BPM: 120})
		if err != nil {
			t.Fatalf("CreateProject: %v", err)
		}
		track, err := store.CreateTrack(ctx, &model.Track{Name: "Vox", Type: model.TrackTypeVocals, ProjectID: project.ID, Volume: 80})
		if err != nil {
			t.Fatalf("CreateTrack: %v", err)
		}
		clip := testsupport.NewAudioClip(t, store, track.ID, 3600, 6400)

		clips, err := store.GetAudioClipsByTrackID(ctx, track.ID)
		if err != nil {
			t.Fatalf("GetAudioClipsByTrackID: %v", err)
		}
		if len(clips) != 1 {
			t.Fatalf("expected 1 clip, got %d", len(clips))
		}
		got := clips[0]
		if got.ID != clip.ID || got.StartTime != 3600 || got.Duration != 6400 || got.TrackID != track.ID || got.EndTime() != 10000 {
			t.Fatalf("unexpected clip %+v", got)
		}
	})
}

func TestCreateRequiresLiveParent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		if _, err := store.CreateProject(ctx, &model.Project{Name: "p", UserID: 42}); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("project with missing user: expected ErrNotFound, got %v", err)
		}
		if _, err := store.CreateTrack(ctx, &model.Track{Name: "t", Type: model.TrackTypeBass, ProjectID: 42}); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("track with missing project: expected ErrNotFound, got %v", err)
		}
		if _, err := store.CreateMusicGenerationJob(ctx, &model.MusicGenerationJob{ProjectID: 42, Prompt: "lofi"}); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("job with missing project: expected ErrNotFound, got %v", err)
		}
	})
}

func TestDuplicateUniqueFields(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		testsupport.NewUser(t, store, "alice")
		if _, err := store.CreateUser(ctx, &model.User{Username: "alice", PasswordHash: "y"}); !errors.Is(err, repository.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate for username, got %v", err)
		}

		calm, err := store.CreateMoodTag(ctx, &model.MoodTag{Name: "calm", Color: "#00f"})
		if err != nil {
			t.Fatalf("CreateMoodTag: %v", err)
		}
		if _, err := store.CreateMoodTag(ctx, &model.MoodTag{Name: "calm"}); !errors.Is(err, repository.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate for tag name, got %v", err)
		}
		if _, err := store.CreateMoodTag(ctx, &model.MoodTag{Name: "dark"}); err != nil {
			t.Fatalf("CreateMoodTag dark: %v", err)
		}
		dark := "dark"
		if _, err := store.UpdateMoodTag(ctx, calm.ID, model.MoodTagPatch{Name: &dark}); !errors.Is(err, repository.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate on rename, got %v", err)
		}
		got, err := store.GetMoodTagByName(ctx, "calm")
		if err != nil || got == nil || got.ID != calm.ID {
			t.Fatalf("GetMoodTagByName = %v, %v", got, err)
		}
	})
}

func TestEffectSettingsRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "alice")
		project := testsupport.NewProject(t, store, user.ID, "p")
		track := testsupport.NewTrack(t, store, project.ID, "Drums")

		effect, err := store.CreateEffect(ctx, &model.Effect{
			Name:     "Tone",
			Type:     model.EffectTypeEQ,
			TrackID:  track.ID,
			Enabled:  true,
			Settings: &model.EQSettings{Bands: []model.EQBand{{Frequency: 100, Gain: -3}, {Frequency: 8000, Gain: 2}}},
		})
		if err != nil {
			t.Fatalf("CreateEffect: %v", err)
		}

		got, err := store.GetEffect(ctx, effect.ID)
		if err != nil || got == nil {
			t.Fatalf("GetEffect = %v, %v", got, err)
		}
		eq, ok := got.Settings.(*model.EQSettings)
		if !ok {
			t.Fatalf("expected *EQSettings, got %T", got.Settings)
		}
		if len(eq.Bands) != 2 || eq.Bands[1].Frequency != 8000 || eq.Bands[0].Gain != -3 {
			t.Fatalf("unexpected bands %+v", eq.Bands)
		}

		disabled := false
		updated, err := store.UpdateEffect(ctx, effect.ID, model.EffectPatch{Enabled: &disabled})
		if err != nil {
			t.Fatalf("UpdateEffect: %v", err)
		}
		if updated.Enabled || updated.Name != "Tone" {
			t.Fatalf("unexpected effect after update %+v", updated)
		}
		if _, ok := updated.Settings.(*model.EQSettings); !ok {
			t.Fatalf("settings lost on update: %T", updated.Settings)
		}

		_, err = store.UpdateEffect(ctx, effect.ID, model.EffectPatch{Settings: &model.ReverbSettings{RoomSize: 0.5}})
		var verr *model.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError for mismatched settings, got %v", err)
		}
	})
}

func TestMoodTagWeightRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "alice")
		project := testsupport.NewProject(t, store, user.ID, "p")
		track := testsupport.NewTrack(t, store, project.ID, "Keys")
		clip := testsupport.NewAudioClip(t, store, track.ID, 0, 1000)
		tag, err := store.CreateMoodTag(ctx, &model.MoodTag{Name: "uplifting", Color: "#ff0"})
		if err != nil {
			t.Fatalf("CreateMoodTag: %v", err)
		}

		if _, err := store.AddMoodTagToAudioClip(ctx, &model.AudioClipMoodTag{AudioClipID: clip.ID, MoodTagID: tag.ID, Weight: 5}); err != nil {
			t.Fatalf("AddMoodTagToAudioClip: %v", err)
		}
		if _, err := store.UpdateAudioClipMoodTagWeight(ctx, clip.ID, tag.ID, 8); err != nil {
			t.Fatalf("UpdateAudioClipMoodTagWeight: %v", err)
		}

		links, err := store.GetAudioClipMoodTags(ctx, clip.ID)
		if err != nil {
			t.Fatalf("GetAudioClipMoodTags: %v", err)
		}
		if len(links) != 1 {
			t.Fatalf("expected exactly one link, got %d", len(links))
		}
		if links[0].MoodTagID != tag.ID || links[0].Weight != 8 {
			t.Fatalf("unexpected link %+v", links[0])
		}
		if links[0].MoodTag == nil || links[0].MoodTag.Name != "uplifting" {
			t.Fatalf("link not enriched with its mood tag: %+v", links[0].MoodTag)
		}

		if _, err := store.AddMoodTagToAudioClip(ctx, &model.AudioClipMoodTag{AudioClipID: clip.ID, MoodTagID: tag.ID, Weight: 2}); err != nil {
			t.Fatalf("re-adding tag: %v", err)
		}
		links, _ = store.GetAudioClipMoodTags(ctx, clip.ID)
		if len(links) != 1 || links[0].Weight != 2 {
			t.Fatalf("expected upsert to keep one row with weight 2, got %+v", links)
		}

		clips, err := store.GetAudioClipsByMoodTagID(ctx, tag.ID)
		if err != nil {
			t.Fatalf("GetAudioClipsByMoodTagID: %v", err)
		}
		if len(clips) != 1 || clips[0].ID != clip.ID {
			t.Fatalf("unexpected clips for tag: %+v", clips)
		}
	})
}

func TestMoodTagLinkErrors(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "alice")
		project := testsupport.NewProject(t, store, user.ID, "p")
		track := testsupport.NewTrack(t, store, project.ID, "Keys")
		clip := testsupport.NewAudioClip(t, store, track.ID, 0, 1000)
		tag, err := store.CreateMoodTag(ctx, &model.MoodTag{Name: "tense"})
		if err != nil {
			t.Fatalf("CreateMoodTag: %v", err)
		}

		_, err = store.UpdateAudioClipMoodTagWeight(ctx, clip.ID, tag.ID, 3)
		var lnf *repository.LinkNotFoundError
		if !errors.As(err, &lnf) || !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected LinkNotFoundError, got %v", err)
		}

		var verr *model.ValidationError
		for _, weight := range []int{0, 11} {
			_, err := store.AddMoodTagToAudioClip(ctx, &model.AudioClipMoodTag{AudioClipID: clip.ID, MoodTagID: tag.ID, Weight: weight})
			if !errors.As(err, &verr) {
				t.Fatalf("weight %d: expected ValidationError, got %v", weight, err)
			}
		}

		_, err = store.AddMoodTagToAudioClip(ctx, &model.AudioClipMoodTag{AudioClipID: 999, MoodTagID: tag.ID, Weight: 4})
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("missing clip: expected ErrNotFound, got %v", err)
		}

		removed, err := store.RemoveMoodTagFromAudioClip(ctx, clip.ID, tag.ID)
		if err != nil || removed {
			t.Fatalf("removing absent link = %v, %v", removed, err)
		}
	})
}

func TestDeleteProjectCascades(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "alice")
		project := testsupport.NewProject(t, store, user.ID, "p")
		other := testsupport.NewProject(t, store, user.ID, "keep")
		track := testsupport.NewTrack(t, store, project.ID, "Vox")
		kept := testsupport.NewTrack(t, store, other.ID, "Kept")
		clip := testsupport.NewAudioClip(t, store, track.ID, 0, 500)
		effect, err := store.CreateEffect(ctx, &model.Effect{Name: "Verb", Type: model.EffectTypeReverb, TrackID: track.ID, Settings: &model.ReverbSettings{RoomSize: 0.4}})
		if err != nil {
			t.Fatalf("CreateEffect: %v", err)
		}
		tag, err := store.CreateMoodTag(ctx, &model.MoodTag{Name: "warm"})
		if err != nil {
			t.Fatalf("CreateMoodTag: %v", err)
		}
		if _, err := store.AddMoodTagToAudioClip(ctx, &model.AudioClipMoodTag{AudioClipID: clip.ID, MoodTagID: tag.ID, Weight: 7}); err != nil {
			t.Fatalf("AddMoodTagToAudioClip: %v", err)
		}
		job, err := store.CreateStemSeparationJob(ctx, &model.StemSeparationJob{ProjectID: project.ID, OriginalPath: "/x.wav"})
		if err != nil {
			t.Fatalf("CreateStemSeparationJob: %v", err)
		}

		if removed, err := store.DeleteProject(ctx, project.ID); err != nil || !removed {
			t.Fatalf("DeleteProject = %v, %v", removed, err)
		}

		if got, _ := store.GetTrack(ctx, track.ID); got != nil {
			t.Fatal("track survived project deletion")
		}
		if got, _ := store.GetAudioClip(ctx, clip.ID); got != nil {
			t.Fatal("clip survived project deletion")
		}
		if got, _ := store.GetEffect(ctx, effect.ID); got != nil {
			t.Fatal("effect survived project deletion")
		}
		if got, _ := store.GetStemSeparationJob(ctx, job.ID); got != nil {
			t.Fatal("job survived project deletion")
		}
		if clips, _ := store.GetAudioClipsByMoodTagID(ctx, tag.ID); len(clips) != 0 {
			t.Fatalf("tag link survived project deletion: %+v", clips)
		}
		if got, _ := store.GetMoodTag(ctx, tag.ID); got == nil {
			t.Fatal("mood tag must survive clip deletion")
		}
		if got, _ := store.GetTrack(ctx, kept.ID); got == nil {
			t.Fatal("track of another project was deleted")
		}
	})
}

func TestDeleteMoodTagRemovesLinks(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "alice")
		project := testsupport.NewProject(t, store, user.ID, "p")
		track := testsupport.NewTrack(t, store, project.ID, "Pad")
		clip := testsupport.NewAudioClip(t, store, track.ID, 0, 500)
		tag, err := store.CreateMoodTag(ctx, &model.MoodTag{Name: "dreamy"})
		if err != nil {
			t.Fatalf("CreateMoodTag: %v", err)
		}
		if _, err := store.AddMoodTagToAudioClip(ctx, &model.AudioClipMoodTag{AudioClipID: clip.ID, MoodTagID: tag.ID, Weight: 3}); err != nil {
			t.Fatalf("AddMoodTagToAudioClip: %v", err)
		}

		if removed, err := store.DeleteMoodTag(ctx, tag.ID); err != nil || !removed {
			t.Fatalf("DeleteMoodTag = %v, %v", removed, err)
		}
		links, err := store.GetAudioClipMoodTags(ctx, clip.ID)
		if err != nil {
			t.Fatalf("GetAudioClipMoodTags: %v", err)
		}
		if len(links) != 0 {
			t.Fatalf("expected links to be removed, got %+v", links)
		}
		if got, _ := store.GetAudioClip(ctx, clip.ID); got == nil {
			t.Fatal("clip must survive tag deletion")
		}
	})
}

func TestJobLifecycleThroughStore(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "alice")
		project := testsupport.NewProject(t, store, user.ID, "p")

		job, err := store.CreateVoiceCloningJob(ctx, &model.VoiceCloningJob{
			ProjectID:  project.ID,
			SamplePath: "/sample.wav",
			Text:       "hello",
			JobState:   model.JobState{Status: model.JobStatusCompleted},
		})
		if err != nil {
			t.Fatalf("CreateVoiceCloningJob: %v", err)
		}
		if job.Status != model.JobStatusPending {
			t.Fatalf("new job must start pending, got %q", job.Status)
		}

		processing := model.JobStatusProcessing
		if _, err := store.UpdateVoiceCloningJob(ctx, job.ID, model.VoiceCloningJobPatch{JobUpdate: model.JobUpdate{Status: &processing}}); err != nil {
			t.Fatalf("to processing: %v", err)
		}
		completed := model.JobStatusCompleted
		done, err := store.UpdateVoiceCloningJob(ctx, job.ID, model.VoiceCloningJobPatch{
			JobUpdate:  model.JobUpdate{Status: &completed},
			OutputPath: model.Ptr("/outputs/voice.wav"),
		})
		if err != nil {
			t.Fatalf("to completed: %v", err)
		}
		if done.OutputPath == nil || *done.OutputPath != "/outputs/voice.wav" || done.Error != nil {
			t.Fatalf("unexpected completed job %+v", done)
		}

		_, err = store.UpdateVoiceCloningJob(ctx, job.ID, model.VoiceCloningJobPatch{JobUpdate: model.JobUpdate{Status: &processing}})
		if !errors.Is(err, model.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		got, err := store.GetVoiceCloningJob(ctx, job.ID)
		if err != nil || got == nil {
			t.Fatalf("GetVoiceCloningJob = %v, %v", got, err)
		}
		if got.Status != model.JobStatusCompleted {
			t.Fatalf("rejected transition must not change the job, status %q", got.Status)
		}

		jobs, err := store.GetVoiceCloningJobsByProjectID(ctx, project.ID)
		if err != nil || len(jobs) != 1 {
			t.Fatalf("GetVoiceCloningJobsByProjectID = %v, %v", jobs, err)
		}
	})
}

func TestStemJobFailureClearsOutputs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "alice")
		project := testsupport.NewProject(t, store, user.ID, "p")
		job, err := store.CreateStemSeparationJob(ctx, &model.StemSeparationJob{ProjectID: project.ID, OriginalPath: "/mix.wav"})
		if err != nil {
			t.Fatalf("CreateStemSeparationJob: %v", err)
		}

		processing := model.JobStatusProcessing
		if _, err := store.UpdateStemSeparationJob(ctx, job.ID, model.StemSeparationJobPatch{
			JobUpdate:   model.JobUpdate{Status: &processing},
			OutputPaths: model.StemPaths{"vocals": "/v.wav"},
		}); err != nil {
			t.Fatalf("to processing: %v", err)
		}
		failed := model.JobStatusFailed
		got, err := store.UpdateStemSeparationJob(ctx, job.ID, model.StemSeparationJobPatch{
			JobUpdate: model.JobUpdate{Status: &failed, Error: model.Ptr("disk full")},
		})
		if err != nil {
			t.Fatalf("to failed: %v", err)
		}
		if got.OutputPaths != nil {
			t.Fatalf("failed job must not keep outputs: %+v", got.OutputPaths)
		}
		if got.Error == nil || *got.Error != "disk full" {
			t.Fatalf("unexpected error field %v", got.Error)
		}

		reloaded, _ := store.GetStemSeparationJob(ctx, job.ID)
		if reloaded.OutputPaths != nil || reloaded.Status != model.JobStatusFailed {
			t.Fatalf("unexpected persisted job %+v", reloaded)
		}
	})
}

func TestCompletingJobRequiresOutput(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "alice")
		project := testsupport.NewProject(t, store, user.ID, "p")
		processing := model.JobStatusProcessing
		completed := model.JobStatusCompleted

		stem, err := store.CreateStemSeparationJob(ctx, &model.StemSeparationJob{ProjectID: project.ID, OriginalPath: "/mix.wav"})
		if err != nil {
			t.Fatalf("CreateStemSeparationJob: %v", err)
		}
		if _, err := store.UpdateStemSeparationJob(ctx, stem.ID, model.StemSeparationJobPatch{JobUpdate: model.JobUpdate{Status: &processing}}); err != nil {
			t.Fatalf("stem to processing: %v", err)
		}
		voice, err := store.CreateVoiceCloningJob(ctx, &model.VoiceCloningJob{ProjectID: project.ID, SamplePath: "/s.wav", Text: "hi"})
		if err != nil {
			t.Fatalf("CreateVoiceCloningJob: %v", err)
		}
		if _, err := store.UpdateVoiceCloningJob(ctx, voice.ID, model.VoiceCloningJobPatch{JobUpdate: model.JobUpdate{Status: &processing}}); err != nil {
			t.Fatalf("voice to processing: %v", err)
		}
		music, err := store.CreateMusicGenerationJob(ctx, &model.MusicGenerationJob{ProjectID: project.ID, Prompt: "lofi"})
		if err != nil {
			t.Fatalf("CreateMusicGenerationJob: %v", err)
		}
		if _, err := store.UpdateMusicGenerationJob(ctx, music.ID, model.MusicGenerationJobPatch{JobUpdate: model.JobUpdate{Status: &processing}}); err != nil {
			t.Fatalf("music to processing: %v", err)
		}

		completions := map[string]func() error{
			"stem": func() error {
				_, err := store.UpdateStemSeparationJob(ctx, stem.ID, model.StemSeparationJobPatch{JobUpdate: model.JobUpdate{Status: &completed}})
				return err
			},
			"voice": func() error {
				_, err := store.UpdateVoiceCloningJob(ctx, voice.ID, model.VoiceCloningJobPatch{JobUpdate: model.JobUpdate{Status: &completed}})
				return err
			},
			"music": func() error {
				_, err := store.UpdateMusicGenerationJob(ctx, music.ID, model.MusicGenerationJobPatch{JobUpdate: model.JobUpdate{Status: &completed}})
				return err
			},
		}
		for kind, complete := range completions {
			var verr *model.ValidationError
			if err := complete(); !errors.As(err, &verr) {
				t.Fatalf("%s: expected ValidationError, got %v", kind, err)
			}
		}

		if got, _ := store.GetStemSeparationJob(ctx, stem.ID); got.Status != model.JobStatusProcessing || got.OutputPaths != nil {
			t.Fatalf("rejected completion changed the stem job: %+v", got)
		}
		if got, _ := store.GetVoiceCloningJob(ctx, voice.ID); got.Status != model.JobStatusProcessing {
			t.Fatalf("rejected completion changed the voice job: %+v", got)
		}
		if got, _ := store.GetMusicGenerationJob(ctx, music.ID); got.Status != model.JobStatusProcessing {
			t.Fatalf("rejected completion changed the music job: %+v", got)
		}
	})
}

func TestEffectWithoutSettingsReadsBackTyped(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		user := testsupport.NewUser(t, store, "alice")
		project := testsupport.NewProject(t, store, user.ID, "p")
		track := testsupport.NewTrack(t, store, project.ID, "Bus")

		comp, err := store.CreateEffect(ctx, &model.Effect{Name: "Glue", Type: model.EffectTypeCompressor, TrackID: track.ID})
		if err != nil {
			t.Fatalf("CreateEffect: %v", err)
		}
		if _, ok := comp.Settings.(*model.CompressorSettings); !ok {
			t.Fatalf("created effect settings: expected *CompressorSettings, got %T", comp.Settings)
		}
		got, err := store.GetEffect(ctx, comp.ID)
		if err != nil || got == nil {
			t.Fatalf("GetEffect = %v, %v", got, err)
		}
		if _, ok := got.Settings.(*model.CompressorSettings); !ok {
			t.Fatalf("stored effect settings: expected *CompressorSettings, got %T", got.Settings)
		}

		chorus, err := store.CreateEffect(ctx, &model.Effect{Name: "Wide", Type: "chorus", TrackID: track.ID})
		if err != nil {
			t.Fatalf("CreateEffect: %v", err)
		}
		got, err = store.GetEffect(ctx, chorus.ID)
		if err != nil || got == nil {
			t.Fatalf("GetEffect = %v, %v", got, err)
		}
		raw, ok := got.Settings.(*model.RawSettings)
		if !ok || raw.Type != "chorus" || len(raw.Values) != 0 {
			t.Fatalf("expected empty chorus settings, got %#v", got.Settings)
		}
	})
}

func TestSeedDemoUserIsIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		first, err := repository.SeedDemoUser(ctx, store, "demo", "password")
		if err != nil {
			t.Fatalf("SeedDemoUser: %v", err)
		}
		second, err := repository.SeedDemoUser(ctx, store, "demo", "password")
		if err != nil {
			t.Fatalf("SeedDemoUser again: %v", err)
		}
		if first.ID != second.ID || first.ID != 1 {
			t.Fatalf("expected the same demo user with id 1, got %d and %d", first.ID, second.ID)
		}
		if first.PasswordHash == "password" {
			t.Fatal("password must be stored hashed")
		}
	})
}
