package capture

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/posebeat/internal/pose"
)

// bones are the landmark pairs joined by a line in the preview overlay.
var bones = [][2]int{
	{pose.LeftShoulder, pose.RightShoulder},
	{pose.LeftShoulder, pose.LeftElbow},
	{pose.LeftElbow, pose.LeftWrist},
	{pose.RightShoulder, pose.RightElbow},
	{pose.RightElbow, pose.RightWrist},
	{pose.LeftShoulder, pose.LeftHip},
	{pose.RightShoulder, pose.RightHip},
	{pose.LeftHip, pose.RightHip},
	{pose.LeftHip, pose.LeftKnee},
	{pose.LeftKnee, pose.LeftAnkle},
	{pose.RightHip, pose.RightKnee},
	{pose.RightKnee, pose.RightAnkle},
}

var (
	boneColor  = color.RGBA{R: 0, G: 200, B: 255, A: 0}
	jointColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	wristColor = color.RGBA{R: 255, G: 80, B: 80, A: 0}
)

// DrawPose renders the visible skeleton of lm onto img. Landmarks are in
// normalized coordinates and are scaled to the image size.
func DrawPose(img *gocv.Mat, lm *pose.Landmarks) {
	if img == nil || lm == nil || img.Empty() {
		return
	}

	w, h := img.Cols(), img.Rows()
	pt := func(l pose.Landmark) image.Point {
		return image.Pt(int(l.X*float64(w)), int(l.Y*float64(h)))
	}

	for _, b := range bones {
		a, c := lm[b[0]], lm[b[1]]
		if !a.Visible() || !c.Visible() {
			continue
		}
		gocv.Line(img, pt(a), pt(c), boneColor, 2)
	}

	for i, l := range lm {
		if !l.Visible() {
			continue
		}
		col, radius := jointColor, 3
		if i == pose.LeftWrist || i == pose.RightWrist {
			col, radius = wristColor, 6
		}
		gocv.Circle(img, pt(l), radius, col, -1)
	}
}

// EncodeJPEG encodes img for the preview stream.
func EncodeJPEG(img *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *img)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	// GetBytes aliases native memory released by Close.
	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
