package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"kudos/internal/api"
	"kudos/internal/config"
)

// elementManifest is the YAML document read by `kudos element import`.
//
//	defaults:
//	  zones: [finance]
//	elements:
//	  - ref: ledger
//	    type_name: Asset
//	    qualified_name: finance.ledger
//	  - type_name: Schema
//	    qualified_name: finance.ledger.schema
//	    anchor_ref: ledger
type elementManifest struct {
	Defaults struct {
		Zones []string `yaml:"zones"`
	} `yaml:"defaults"`
	Elements []manifestElement `yaml:"elements"`
}

type manifestElement struct {
	api.ElementCreateRequest `yaml:",inline"`
	Ref                      string `yaml:"ref"`
	AnchorRef                string `yaml:"anchor_ref"`
}

type importResult struct {
	Created  int               `json:"created"`
	Declined int               `json:"declined"`
	GUIDs    map[string]string `json:"guids,omitempty"`
	DryRun   bool              `json:"dry_run"`
}

// add folds one manifest's result into r. Refs are scoped to their manifest,
// so a later manifest reusing a ref overwrites the reported GUID.
func (r *importResult) add(other importResult) {
	r.Created += other.Created
	r.Declined += other.Declined
	for ref, guid := range other.GUIDs {
		r.GUIDs[ref] = guid
	}
}

func newElementImportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <manifest.yaml|glob>...",
		Short: "Create elements from YAML manifests",
		Args:  requireAtLeastArgs(1, "manifest path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandManifestPaths(args)
			if err != nil {
				return err
			}
			manifests := make([]*elementManifest, 0, len(paths))
			for _, path := range paths {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				manifest, err := parseElementManifest(data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				manifests = append(manifests, manifest)
			}

			if dryRun {
				total := importResult{DryRun: true}
				for _, manifest := range manifests {
					total.Created += len(manifest.Elements)
				}
				return writeImportResult(total, *jsonOutput)
			}

			return withClient(cfg, func(client *api.Client) error {
				total := importResult{GUIDs: map[string]string{}}
				for i, manifest := range manifests {
					result, err := importElements(cmd.Context(), client, manifest, cfg.Zones.Default)
					total.add(result)
					if err != nil {
						return fmt.Errorf("%s: %w", paths[i], err)
					}
				}
				return writeImportResult(total, *jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate manifests without creating elements")
	return cmd
}

// expandManifestPaths resolves each argument as a ** glob. An argument that
// matches nothing is kept as a literal path so the read reports it.
func expandManifestPaths(args []string) ([]string, error) {
	var paths []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid manifest pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			matches = []string{arg}
		}
		sort.Strings(matches)
		for _, match := range matches {
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = struct{}{}
			paths = append(paths, match)
		}
	}
	return paths, nil
}

// parseElementManifest decodes and checks a manifest. Refs must be unique and
// an anchor_ref must name an element listed earlier in the file.
func parseElementManifest(data []byte) (*elementManifest, error) {
	var manifest elementManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	if len(manifest.Elements) == 0 {
		return nil, fmt.Errorf("no elements found in manifest")
	}

	seen := map[string]struct{}{}
	for i, element := range manifest.Elements {
		if strings.TrimSpace(element.QualifiedName) == "" {
			return nil, fmt.Errorf("element %d: qualified_name is required", i+1)
		}
		if element.AnchorRef != "" {
			if element.AnchorGUID != "" {
				return nil, fmt.Errorf("element %d: set anchor_guid or anchor_ref, not both", i+1)
			}
			if _, ok := seen[element.AnchorRef]; !ok {
				return nil, fmt.Errorf("element %d: anchor_ref %q does not name an earlier element", i+1, element.AnchorRef)
			}
		}
		if element.Ref != "" {
			if _, dup := seen[element.Ref]; dup {
				return nil, fmt.Errorf("element %d: duplicate ref %q", i+1, element.Ref)
			}
			seen[element.Ref] = struct{}{}
		}
	}
	return &manifest, nil
}

type elementCreator interface {
	CreateElement(ctx context.Context, req api.ElementCreateRequest) (api.ElementResponse, error)
}

func importElements(ctx context.Context, client elementCreator, manifest *elementManifest, defaultZones []string) (importResult, error) {
	result := importResult{GUIDs: map[string]string{}}
	for i, element := range manifest.Elements {
		req := element.ElementCreateRequest
		if len(req.Zones) == 0 {
			req.Zones = chooseZones(manifest.Defaults.Zones, defaultZones)
		}
		if element.AnchorRef != "" {
			anchor, ok := result.GUIDs[element.AnchorRef]
			if !ok {
				return result, fmt.Errorf("element %d: anchor %q was declined", i+1, element.AnchorRef)
			}
			req.AnchorGUID = anchor
		}

		resp, err := client.CreateElement(ctx, req)
		if err != nil {
			return result, fmt.Errorf("element %d (%s): %w", i+1, req.QualifiedName, err)
		}
		if resp.GUID == "" {
			result.Declined++
			continue
		}
		result.Created++
		if element.Ref != "" {
			result.GUIDs[element.Ref] = resp.GUID
		}
	}
	return result, nil
}

func chooseZones(candidates ...[]string) []string {
	for _, zones := range candidates {
		if len(zones) > 0 {
			return zones
		}
	}
	return nil
}

func writeImportResult(result importResult, jsonOutput bool) error {
	if jsonOutput {
		return writeOutput(result)
	}
	if result.DryRun {
		return writePlain("dry run: %d elements would be created\n", result.Created)
	}
	if err := writePlain("created: %d, declined: %d\n", result.Created, result.Declined); err != nil {
		return err
	}
	refs := make([]string, 0, len(result.GUIDs))
	for ref := range result.GUIDs {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		if err := writePlain("  %s: %s\n", ref, result.GUIDs[ref]); err != nil {
			return err
		}
	}
	return nil
}
