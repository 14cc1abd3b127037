package service

import (
	"reflect"
	"testing"

	"github.com/yuqie6/GradeMirror/internal/schema"
)

func TestSyncSemestersGrowsFromCanonical(t *testing.T) {
	doc := &schema.Document{TotalSemestersTarget: 3, Semesters: []schema.Semester{sem(1, 80, 90)}}
	next, active := SyncSemesters(doc, 1)
	if len(next.Semesters) != 3 || active != 1 {
		t.Fatalf("semesters=%d active=%d", len(next.Semesters), active)
	}
	for i, s := range next.Semesters[1:] {
		if s.ID != i+2 {
			t.Fatalf("id=%d, want %d", s.ID, i+2)
		}
		if len(s.Subjects) != 2 || s.Subjects[0].ID != "a" || s.Subjects[0].Name != "A" {
			t.Fatalf("seeded subjects=%+v", s.Subjects)
		}
		for _, sub := range s.Subjects {
			if sub.Score != 0 {
				t.Fatalf("seeded score=%d, want 0", sub.Score)
			}
		}
	}
}

func TestSyncSemestersFromEmptyList(t *testing.T) {
	next, _ := SyncSemesters(schema.NewDocument(), 1)
	if len(next.Semesters) != schema.DefaultTotalSemesters {
		t.Fatalf("semesters=%d, want %d", len(next.Semesters), schema.DefaultTotalSemesters)
	}
	for _, s := range next.Semesters {
		if len(s.Subjects) != 0 {
			t.Fatalf("semester %d should start empty", s.ID)
		}
	}
}

func TestSyncSemestersIsIdempotent(t *testing.T) {
	doc := &schema.Document{TotalSemestersTarget: 4, Semesters: []schema.Semester{sem(1, 80, 90), sem(2, 70, 0)}}
	once, a1 := SyncSemesters(doc, 2)
	twice, a2 := SyncSemesters(once, a1)
	if !reflect.DeepEqual(once, twice) || a1 != a2 {
		t.Fatalf("second sync changed document:\n%+v\n%+v", once, twice)
	}
}

func TestSyncSemestersTruncatesTail(t *testing.T) {
	doc := &schema.Document{TotalSemestersTarget: 5, Semesters: []schema.Semester{sem(1, 80, 90)}}
	full, _ := SyncSemesters(doc, 1)
	full = SetSubjectScore(full, 2, "a", 70)
	full = SetSubjectScore(full, 5, "b", 60)

	full.TotalSemestersTarget = 2
	shrunk, active := SyncSemesters(full, 5)
	if len(shrunk.Semesters) != 2 {
		t.Fatalf("semesters=%d, want 2", len(shrunk.Semesters))
	}
	if !reflect.DeepEqual(shrunk.Semesters, full.Semesters[:2]) {
		t.Fatalf("kept semesters changed:\n%+v\n%+v", shrunk.Semesters, full.Semesters[:2])
	}
	if active != 1 {
		t.Fatalf("active=%d, want reset to 1", active)
	}
}

func TestSyncSemestersToZeroKeepsActive(t *testing.T) {
	doc := &schema.Document{TotalSemestersTarget: 0, Semesters: []schema.Semester{sem(1, 80), sem(2, 70)}}
	next, active := SyncSemesters(doc, 2)
	if len(next.Semesters) != 0 {
		t.Fatalf("semesters=%d, want 0", len(next.Semesters))
	}
	if active != 2 {
		t.Fatalf("active=%d, want unchanged when no semesters remain", active)
	}

	doc.TotalSemestersTarget = -3
	if next, _ := SyncSemesters(doc, 1); len(next.Semesters) != 0 {
		t.Fatalf("negative target should truncate like 0")
	}
}

func TestReconcileSubjectsAlignsToCanonical(t *testing.T) {
	doc := &schema.Document{Semesters: []schema.Semester{
		{ID: 1, Subjects: []schema.Subject{{ID: "a", Name: "Math"}, {ID: "b", Name: "Art"}}},
		{ID: 2, Subjects: []schema.Subject{{ID: "b", Name: "old", Score: 75}, {ID: "z", Name: "stale", Score: 10}}},
	}}
	next := ReconcileSubjects(doc)
	got := next.Semesters[1].Subjects
	want := []schema.Subject{{ID: "a", Name: "Math", Score: 0}, {ID: "b", Name: "Art", Score: 75}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reconciled=%+v, want %+v", got, want)
	}
}

func TestSyncSemestersRenumbersIrregularIDs(t *testing.T) {
	cases := []struct {
		name   string
		target int
		in     []schema.Semester
		want   []int
		first  int // 规范学期第一个科目的分数
	}{
		{name: "gap at start", target: 3, in: []schema.Semester{sem(2, 70), sem(3, 80)}, want: []int{1, 2, 3}, first: 70},
		{name: "reversed then truncated", target: 1, in: []schema.Semester{sem(2, 60), sem(1, 90)}, want: []int{1}, first: 90},
		{name: "duplicates keep order", target: 2, in: []schema.Semester{sem(4, 50), sem(4, 55)}, want: []int{1, 2}, first: 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := &schema.Document{TotalSemestersTarget: tc.target, Semesters: tc.in}
			next, active := SyncSemesters(doc, schema.CanonicalSemesterID)
			var ids []int
			for _, s := range next.Semesters {
				ids = append(ids, s.ID)
			}
			if !reflect.DeepEqual(ids, tc.want) {
				t.Fatalf("ids=%v, want %v", ids, tc.want)
			}
			if active != schema.CanonicalSemesterID {
				t.Fatalf("active=%d, want 1", active)
			}
			if got := next.Semesters[0].Subjects[0].Score; got != tc.first {
				t.Fatalf("canonical score=%d, want %d", got, tc.first)
			}
			if doc.Semesters[0].ID != tc.in[0].ID {
				t.Fatalf("input document was modified")
			}
		})
	}
}
