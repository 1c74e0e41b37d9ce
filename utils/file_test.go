package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetFilenameWithoutExt(t *testing.T) {
	if got := GetFilenameWithoutExt("/data/mag.tif"); got != "mag" {
		t.Fatal(got)
	}
	if got := GetFilenameWithoutExt("deposits.zip"); got != "deposits" {
		t.Fatal(got)
	}
}

func TestFindShapefile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, os.ModePerm); err != nil {
		t.Fatal(err)
	}
	shp := filepath.Join(sub, "sites.shp")
	if err := os.WriteFile(shp, []byte{0}, os.ModePerm); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "sites.cpg"), []byte("UTF-8"), os.ModePerm); err != nil {
		t.Fatal(err)
	}

	path, utf8, err := FindShapefile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if path != shp || !utf8 {
		t.Fatal(path, utf8)
	}
}

func TestFindShapefileMissing(t *testing.T) {
	if _, _, err := FindShapefile(t.TempDir()); err != ErrNoShpFound {
		t.Fatal(err)
	}
}

func TestGetUniqSubDir(t *testing.T) {
	parent := t.TempDir()
	a, err := GetUniqSubDir(parent)
	if err != nil {
		t.Fatal(err)
	}
	b, err := GetUniqSubDir(parent)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("sub dirs not unique")
	}
}
