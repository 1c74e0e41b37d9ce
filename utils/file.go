package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	FILE_EXT_SHP = ".shp"
	FILE_EXT_CPG = ".cpg"
	FILE_EXT_TIF = ".tif"

	UTF8  = "UTF8"
	UTF_8 = "UTF-8"
)

var (
	ErrNoShpFound = errors.New("no shp found")
)

func GetUniqSubDir(parentPath string) (path string, err error) {
	path = filepath.Join(parentPath, uuid.NewString())
	err = os.Mkdir(path, os.ModePerm)
	return
}

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

// 在目录（含子目录）中查找唯一的shp文件，同时根据cpg文件判断其文本编码
func FindShapefile(dir string) (path string, utf8 bool, err error) {
	err = filepath.WalkDir(dir, func(file string, d os.DirEntry, e error) error {
		if e != nil || d.IsDir() {
			return e
		}
		if strings.HasSuffix(file, FILE_EXT_SHP) {
			if path != "" {
				return errors.New("more than one shp in dir")
			}
			path = file
			return nil
		}
		if strings.HasSuffix(file, FILE_EXT_CPG) {
			enc, e := os.ReadFile(file)
			if e == nil && len(enc) > 0 {
				encStr := strings.ToUpper(strings.TrimSpace(string(enc)))
				utf8 = encStr == UTF_8 || encStr == UTF8
			}
		}
		return nil
	})
	if err == nil && path == "" {
		err = ErrNoShpFound
	}
	return
}

func GetShpInZip(zipFile, dstDir string) (path string, utf8 bool, err error) {
	if _, err = Unzip(zipFile, dstDir); err != nil {
		return
	}
	os.Remove(zipFile)
	return FindShapefile(dstDir)
}
