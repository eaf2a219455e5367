package main

import (
	"fmt"
	"image"

	"github.com/spf13/cobra"

	"github.com/chaos-io/bgremover/matte"
	"github.com/chaos-io/bgremover/util"
	nhttp "github.com/chaos-io/bgremover/util/http"
)

type removeOptions struct {
	input      string
	output     string
	color      string
	tolerance  int
	blur       float64
	mode       string
	refine     bool
	iterations int
	backend    string
	workers    int
	maskOut    string
}

func newRemoveCmd() *cobra.Command {
	o := &removeOptions{}
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Make pixels close to a key colour transparent",
		Example: `  bgremover remove -i photo.jpg -o cutout.png
  bgremover remove -i https://example.com/a.png -o - --color 0,255,0 --mode advanced --refine > out.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", "input image: path, http(s) URL or - for stdin")
	f.StringVarP(&o.output, "output", "o", "", "output image: path or - for PNG on stdout")
	f.StringVar(&o.color, "color", matte.DefaultParams().Key.String(), "background key colour r,g,b")
	f.IntVar(&o.tolerance, "tolerance", matte.DefaultTolerance, "colour tolerance 0-255")
	f.Float64Var(&o.blur, "blur", matte.DefaultBlurRadius, "mask blur radius (gaussian sigma)")
	f.StringVar(&o.mode, "mode", matte.Simple.String(), "simple or advanced")
	f.BoolVar(&o.refine, "refine", false, "clean the alpha edge with opening and closing")
	f.IntVar(&o.iterations, "iterations", matte.DefaultRefineIterations, "refine iterations")
	f.StringVar(&o.backend, "backend", "parallel", "serial, parallel or opencv (needs -tags gocv)")
	f.IntVar(&o.workers, "workers", 0, "parallel workers, 0 = GOMAXPROCS")
	f.StringVar(&o.maskOut, "mask-out", "", "also write the smoothed mask as a grey image")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (o *removeOptions) params() (matte.Params, error) {
	key, err := matte.ParseColorKey(o.color)
	if err != nil {
		return matte.Params{}, err
	}
	mode, err := matte.ParseMode(o.mode)
	if err != nil {
		return matte.Params{}, err
	}
	p := matte.Params{
		Key:              key,
		Tolerance:        o.tolerance,
		BlurRadius:       o.blur,
		Mode:             mode,
		Refine:           o.refine,
		RefineIterations: o.iterations,
	}
	return p, p.Validate()
}

func (o *removeOptions) run(cmd *cobra.Command) error {
	defer util.Trace("remove background")()

	params, err := o.params()
	if err != nil {
		return err
	}
	backend, err := matte.NewBackend(o.backend, o.workers)
	if err != nil {
		return err
	}
	pipeline := matte.New(matte.WithBackend(backend))

	img, err := loadInput(cmd, o.input)
	if err != nil {
		return err
	}

	if o.maskOut == "" {
		var remover matte.BackgroundRemover = matte.NewColorKeyRemover(pipeline, params)
		out, err := remover.Remove(img)
		if err != nil {
			return err
		}
		return writeOutput(cmd, o.output, out)
	}

	out, mask, err := pipeline.ProcessWithMask(img, params)
	if err != nil {
		return err
	}
	if err := util.SaveImage(o.maskOut, mask.Gray()); err != nil {
		return err
	}
	return writeOutput(cmd, o.output, out)
}

func loadInput(cmd *cobra.Command, src string) (image.Image, error) {
	if src == "-" {
		return util.DecodeImage(cmd.InOrStdin())
	}
	return util.LoadImage(cmd.Context(), nhttp.NewHTTPClient(), src)
}

func writeOutput(cmd *cobra.Command, dst string, img image.Image) error {
	if dst == "-" {
		return util.EncodePNG(cmd.OutOrStdout(), img)
	}
	if err := util.SaveImage(dst, img); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "saved", dst)
	return nil
}
