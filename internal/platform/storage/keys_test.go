package storage

import "testing"

func TestUploadKey(t *testing.T) {
	key, err := UploadKey("01HZX3", "image/jpeg")
	if err != nil {
		t.Fatalf("UploadKey returned error: %v", err)
	}
	if key != "uploads/01HZX3.jpg" {
		t.Fatalf("unexpected key %s", key)
	}

	if _, err := UploadKey("", "image/png"); err == nil {
		t.Fatal("expected error for empty id")
	}
	if _, err := UploadKey("a/../b", "image/png"); err == nil {
		t.Fatal("expected error for traversal id")
	}
	if _, err := UploadKey("01HZX3", "application/pdf"); err == nil {
		t.Fatal("expected error for unsupported content type")
	}
}

func TestParseUploadKey(t *testing.T) {
	key, err := ParseUploadKey("uploads/abc.jpg")
	if err != nil {
		t.Fatalf("ParseUploadKey returned error: %v", err)
	}
	if key != "uploads/abc.jpg" {
		t.Fatalf("unexpected key %s", key)
	}

	key, err = ParseUploadKey("abc.webp")
	if err != nil {
		t.Fatalf("ParseUploadKey returned error: %v", err)
	}
	if key != "uploads/abc.webp" {
		t.Fatalf("expected uploads prefix, got %s", key)
	}

	if _, err := ParseUploadKey("../secrets"); err == nil {
		t.Fatal("expected error for traversal path")
	}
	if _, err := ParseUploadKey(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
