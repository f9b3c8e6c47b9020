package organizer

import "testing"

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.Register("Category", func(c interface{}) (string, bool) {
		m := c.(map[string]string)
		v, ok := m["Category"]
		return v, ok
	}, "Books")
	r.Register("Author", func(c interface{}) (string, bool) {
		m := c.(map[string]string)
		v, ok := m["Author"]
		return v, ok
	}, "Jane Doe")
	r.Register("Title", func(c interface{}) (string, bool) {
		m := c.(map[string]string)
		v, ok := m["Title"]
		return v, ok
	}, "Some Title")
	return r
}

func TestCalculatePath_ConditionalGroupCollapsesWhenTokenMissing(t *testing.T) {
	r := newTestRegistry()
	candidate := map[string]string{"Category": "Books", "Title": "Dune"}
	template := "{Category}/{Title} ({Author})"

	got := r.CalculatePath(candidate, template)
	want := "Books/Dune"
	if got != want {
		t.Fatalf("CalculatePath() = %q, want %q", got, want)
	}
}

func TestCalculatePath_ConditionalGroupKeptWhenTokenPresent(t *testing.T) {
	r := newTestRegistry()
	candidate := map[string]string{"Category": "Books", "Title": "Dune", "Author": "Frank Herbert"}
	template := "{Category}/{Title} ({Author})"

	got := r.CalculatePath(candidate, template)
	want := "Books/Dune (Frank Herbert)"
	if got != want {
		t.Fatalf("CalculatePath() = %q, want %q", got, want)
	}
}

func TestValidateTemplate_ValidTemplate(t *testing.T) {
	r := newTestRegistry()
	if err := r.ValidateTemplate("{Category}/{Title} ({Author})"); err != nil {
		t.Fatalf("ValidateTemplate() unexpected error: %v", err)
	}
}

func TestValidateTemplate_RejectsEmptyResult(t *testing.T) {
	r := NewRegistry()
	if err := r.ValidateTemplate("({UnknownToken})"); err == nil {
		t.Fatal("ValidateTemplate() expected error for empty path, got nil")
	}
}

func TestValidateTemplate_RejectsAbsolutePath(t *testing.T) {
	r := newTestRegistry()
	if err := r.ValidateTemplate("/{Category}/{Title}"); err == nil {
		t.Fatal("ValidateTemplate() expected error for absolute path, got nil")
	}
}

func TestValidateTemplate_RejectsPathTraversal(t *testing.T) {
	r := newTestRegistry()
	if err := r.ValidateTemplate("../{Category}/{Title}"); err == nil {
		t.Fatal("ValidateTemplate() expected error for traversal, got nil")
	}
}

func TestValidateTemplate_RejectsInvalidChars(t *testing.T) {
	r := newTestRegistry()
	if err := r.ValidateTemplate("{Category}/{Title}?"); err == nil {
		t.Fatal("ValidateTemplate() expected error for invalid characters, got nil")
	}
}

func TestCollapseGroups_EmptyGroupEatsLeadingSpace(t *testing.T) {
	got := collapseGroups("Dune ()")
	want := "Dune"
	if got != want {
		t.Fatalf("collapseGroups() = %q, want %q", got, want)
	}
}

func TestCollapseGroups_NonEmptyGroupKeepsInterior(t *testing.T) {
	got := collapseGroups("Dune (Extended)")
	want := "Dune (Extended)"
	if got != want {
		t.Fatalf("collapseGroups() = %q, want %q", got, want)
	}
}
