package cli

import (
	"fmt"
	"fundverse/internal/global/media"
	"fundverse/internal/model"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewMediaCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Campaign files in object storage",
	}
	cmd.AddCommand(newMediaUploadCommand(opts))
	return cmd
}

func newMediaUploadCommand(opts *RootOptions) *cobra.Command {
	var (
		kind     string
		campaign string
		attach   bool
	)
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a cover, image, pitch deck or id proof and print its reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, ok := media.ParseKind(kind)
			if !ok {
				return errors.Errorf("unknown kind %q", kind)
			}
			return run(cmd.Context(), opts, func(a *app) error {
				if !media.Enabled(a.cfg.S3) {
					return media.ErrNotConfigured
				}
				store, err := media.New(cmd.Context(), a.cfg.S3)
				if err != nil {
					return err
				}

				file, err := os.Open(args[0])
				if err != nil {
					return errors.Wrapf(err, "open %s", args[0])
				}
				defer file.Close()

				obj, err := store.Upload(cmd.Context(), media.UploadRequest{
					Kind:       k,
					CampaignID: campaign,
					Filename:   filepath.Base(args[0]),
				}, file)
				if err != nil {
					return explain(err)
				}
				if attach && campaign != "" {
					if err := a.attachMedia(cmd, campaign, k, obj.URL); err != nil {
						return err
					}
				}
				if opts.Format == "json" {
					return printJSON(cmd.OutOrStdout(), obj)
				}
				fmt.Fprintln(cmd.OutOrStdout(), obj.URL)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(media.KindCover), "cover | additional | pitch_deck | id_proof")
	cmd.Flags().StringVar(&campaign, "campaign", "", "campaign id the file belongs to")
	cmd.Flags().BoolVar(&attach, "attach", false, "store the reference on the campaign")
	return cmd
}

// attachMedia 只保存引用，文件本身不进入 kv 存储
func (a *app) attachMedia(cmd *cobra.Command, id string, kind media.Kind, ref string) error {
	if err := a.checkOwner(cmd, id); err != nil {
		return err
	}
	c, err := a.campaigns.GetByID(cmd.Context(), id)
	if err != nil {
		return err
	}
	if c == nil {
		return errors.Errorf("campaign %s not found", id)
	}

	patch := patchFor(c.Images, kind, ref)
	_, err = a.campaigns.Update(cmd.Context(), id, patch)
	return explain(err)
}

func patchFor(images model.Images, kind media.Kind, ref string) model.CampaignPatch {
	var p model.CampaignPatch
	switch kind {
	case media.KindCover:
		img := model.Images{Cover: ref, Additional: images.Additional}
		p.Images = &img
	case media.KindAdditional:
		img := model.Images{Cover: images.Cover, Additional: append(append([]string{}, images.Additional...), ref)}
		p.Images = &img
	case media.KindPitchDeck:
		p.PitchDeck = &ref
	case media.KindIDProof:
		p.IDProof = &ref
	}
	return p
}
