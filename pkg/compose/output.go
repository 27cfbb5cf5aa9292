package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// OutputPath builds the deterministic path for one composite:
//
//   - no -output: {lif stem}_i{img}_z{z}_c{chans}.png in the working dir
//   - -output is an existing directory: {dir}/i{img}_z{z}_c{chans}.png
//   - otherwise -output is a literal prefix: {output}_i{img}_z{z}_c{chans}.png
//
// {chans} joins the requested channel ids with hyphens - requested, not
// extracted, so a truncated extraction still names the file after what
// was asked for. Any extension on the prefix is dropped; the suffix is
// always .png. Existing files are overwritten silently.
func OutputPath(output, lifPath string, img, z int, channels []int) string {
	ids := make([]string, len(channels))
	for i, c := range channels {
		ids[i] = strconv.Itoa(c)
	}
	tail := fmt.Sprintf("i%d_z%d_c%s.png", img, z, strings.Join(ids, "-"))

	switch {
	case output == "":
		base := filepath.Base(lifPath)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		return stem + "_" + tail

	case isDir(output):
		return filepath.Join(output, tail)

	default:
		prefix := strings.TrimSuffix(output, filepath.Ext(output))
		return prefix + "_" + tail
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
