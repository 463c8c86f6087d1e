package dom

import "testing"

func buildDoc() (*Document, *Node, *Node) {
	root := NewNode("body", "root")
	section := NewNode("section", "stats")
	section.AddClass("stats-section")
	stat := NewNode("span", "stat-1")
	stat.AddClass("stat-value")
	stat.Dataset["target"] = "1234"
	section.Append(stat)
	root.Append(section)
	return NewDocument(root), section, stat
}

func TestAddClassIdempotent(t *testing.T) {
	doc, _, stat := buildDoc()
	doc.DrainPatches()

	stat.AddClass("animated")
	stat.AddClass("animated")

	if !stat.HasClass("animated") {
		t.Fatal("expected class to be present")
	}
	patches := doc.DrainPatches()
	if len(patches) != 1 {
		t.Fatalf("expected 1 patch for repeated AddClass, got %d", len(patches))
	}
	if patches[0].Op != PatchAddClass || patches[0].Key != "animated" {
		t.Errorf("unexpected patch %v %q", patches[0].Op, patches[0].Key)
	}
}

func TestSetTextRecordsPatch(t *testing.T) {
	doc, _, stat := buildDoc()
	doc.DrainPatches()

	stat.SetText("42")
	stat.SetText("42") // unchanged text records nothing

	patches := doc.DrainPatches()
	if len(patches) != 1 {
		t.Fatalf("expected 1 patch, got %d", len(patches))
	}
	if patches[0].Op != PatchSetText || patches[0].Value != "42" || patches[0].NodeID != "stat-1" {
		t.Errorf("unexpected patch %+v", patches[0])
	}
}

func TestDetachStopsRecording(t *testing.T) {
	doc, section, stat := buildDoc()
	doc.DrainPatches()

	stat.Detach()
	if !stat.Detached() {
		t.Fatal("expected node to be detached")
	}
	if len(section.Children()) != 0 {
		t.Errorf("expected parent to drop detached child, got %d children", len(section.Children()))
	}

	patches := doc.DrainPatches()
	if len(patches) != 1 || patches[0].Op != PatchRemoveNode {
		t.Fatalf("expected single RemoveNode patch, got %+v", patches)
	}

	// Writes to a detached node are silent no-ops at the patch level.
	stat.SetText("ghost")
	if got := len(doc.DrainPatches()); got != 0 {
		t.Errorf("detached node recorded %d patches", got)
	}
}

func TestDetachMarksSubtree(t *testing.T) {
	doc, section, stat := buildDoc()
	_ = doc

	section.Detach()
	if !stat.Detached() {
		t.Error("expected descendant to be detached with its parent")
	}
}

func TestLateAppendAdoptsDocument(t *testing.T) {
	doc, section, _ := buildDoc()
	doc.DrainPatches()

	extra := NewNode("div", "late")
	section.Append(extra)
	extra.AddClass("pulse")

	patches := doc.DrainPatches()
	if len(patches) != 1 {
		t.Fatalf("expected late-appended node to record, got %d patches", len(patches))
	}
}

func TestDataLookup(t *testing.T) {
	_, _, stat := buildDoc()

	if v, ok := stat.Data("target"); !ok || v != "1234" {
		t.Errorf("Data(target) = %q, %v", v, ok)
	}
	if _, ok := stat.Data("speed"); ok {
		t.Error("expected missing dataset key to report absence")
	}
}
