// Package evaluator turns a system profile into the set of CVEs that
// profile is vulnerable to, split into those a package update would fix and
// those with no fix available yet.
package evaluator

import (
	"context"
	"fmt"
	"sort"

	"github.com/quay/zlog"

	"github.com/jdobes/vmaas-oval/criteria"
	"github.com/jdobes/vmaas-oval/oval"
	"github.com/jdobes/vmaas-oval/ovalcache"
	"github.com/jdobes/vmaas-oval/rpmver"
)

// Module is one enabled module stream on the system, e.g. "postgresql:12".
type Module struct {
	Name   string `json:"module_name"`
	Stream string `json:"module_stream"`
}

// Profile is the system state an evaluation runs against.
type Profile struct {
	PackageList    []string `json:"package_list"`
	ModulesList    []Module `json:"modules_list"`
	RepositoryList []string `json:"repository_list"`
	Basearch       string   `json:"basearch"`
	Releasever     string   `json:"releasever"`
}

// Result is the outcome of an evaluation: CVEs with a patch already
// available, and CVEs the system is exposed to with none.
type Result struct {
	CVEs          []string `json:"cve_list"`
	UnpatchedCVEs []string `json:"unpatched_cve_list"`
}

// Service evaluates [Profile] values against a fixed cache.
type Service struct {
	cache  *ovalcache.Cache
	engine *criteria.Engine
}

// New returns a Service reading from cache.
func New(cache *ovalcache.Cache) *Service {
	return &Service{cache: cache, engine: criteria.New(cache)}
}

type parsedPackage struct {
	packageNameID oval.PackageNameID
	nevra         criteria.NEVRA
}

// Evaluate computes the patchable and unpatched CVEs that apply to profile.
//
// Packages that don't parse as an RPM NEVRA, or whose name isn't known to
// the cache, are silently dropped, matching how the original evaluator
// treats them: a package the cache has never heard of cannot be in any
// candidate definition's criteria tree.
func (s *Service) Evaluate(ctx context.Context, p Profile) (Result, error) {
	packages := s.parsePackages(ctx, p.PackageList)
	enabledStreams := moduleStreamSet(p.ModulesList)
	candidateDefinitions := s.reposToDefinitions(p.RepositoryList, p.Basearch, p.Releasever)

	cves := make(map[string]struct{})
	unpatchedCVEs := make(map[string]struct{})

	for _, pkg := range packages {
		definitionIDs := ovalcache.IntersectSortedDefinitionIDs(
			candidateDefinitions,
			s.cache.PackageNameIDToDefinitionIDs[pkg.packageNameID],
		)

		for _, defID := range definitionIDs {
			detail, ok := s.cache.DefinitionDetail[defID]
			if !ok {
				continue
			}
			definitionCVEs := s.cache.DefinitionToCVEs[defID]
			if allDecided(definitionCVEs, cves, unpatchedCVEs) {
				continue
			}

			matched, err := s.engine.EvaluateCriteria(detail.CriteriaID, pkg.nevra, enabledStreams)
			if err != nil {
				return Result{}, fmt.Errorf("evaluator: definition %d: %w", defID, err)
			}
			if !matched {
				continue
			}

			switch detail.Type {
			case oval.DefinitionPatch:
				for _, cve := range definitionCVEs {
					cves[cve] = struct{}{}
				}
			case oval.DefinitionVulnerability:
				for _, cve := range definitionCVEs {
					if _, fixed := cves[cve]; fixed {
						continue
					}
					unpatchedCVEs[cve] = struct{}{}
				}
			default:
				return Result{}, fmt.Errorf("evaluator: definition %d: unsupported definition type %d", defID, detail.Type)
			}
		}
	}

	return Result{
		CVEs:          sortedKeys(cves),
		UnpatchedCVEs: sortedKeys(unpatchedCVEs),
	}, nil
}

// allDecided reports whether every CVE in cves has already been placed in
// either the patched or unpatched set, letting Evaluate skip the criteria
// evaluation for a definition that can no longer change the outcome.
func allDecided(definitionCVEs []string, cves, unpatchedCVEs map[string]struct{}) bool {
	if len(definitionCVEs) == 0 {
		return true
	}
	for _, cve := range definitionCVEs {
		_, inPatched := cves[cve]
		_, inUnpatched := unpatchedCVEs[cve]
		if !inPatched && !inUnpatched {
			return false
		}
	}
	return true
}

func (s *Service) parsePackages(ctx context.Context, packageList []string) []parsedPackage {
	out := make([]parsedPackage, 0, len(packageList))
	for _, pkg := range packageList {
		n, err := rpmver.ParseNEVRA(pkg)
		if err != nil {
			zlog.Debug(ctx).Str("package", pkg).Err(err).Msg("dropping unparsable package from evaluation")
			continue
		}
		packageNameID, ok := s.cache.PackageNameToID[n.Name]
		if !ok {
			zlog.Debug(ctx).Str("package", pkg).Msg("dropping package with unknown name from evaluation")
			continue
		}
		out = append(out, parsedPackage{
			packageNameID: packageNameID,
			nevra: criteria.NEVRA{
				PackageNameID: packageNameID,
				EVR:           rpmver.EVR{Epoch: n.Epoch, Version: n.Version, Release: n.Release},
				Arch:          n.Arch,
			},
		})
	}
	return out
}

// reposToDefinitions resolves the enabled content sets (and, when basearch
// or releasever narrow it further, exact repos) to the set of OVAL
// definition ids that could possibly apply. Repo-level CPE mappings are
// tried first since they're more precise; content-set-level CPE mappings
// are used only when no repo matched.
func (s *Service) reposToDefinitions(contentSetList []string, basearch, releasever string) []oval.DefinitionID {
	var basearchID oval.ArchID
	haveBasearch := false
	if basearch != "" || releasever != "" {
		if id, ok := s.cache.ArchToID[basearch]; ok {
			basearchID = id
			haveBasearch = true
		}
	}

	repoIDs := make(map[oval.RepoID]struct{})
	contentSetIDs := make(map[oval.ContentSetID]struct{})
	for _, label := range contentSetList {
		if basearch != "" || releasever != "" {
			key := ovalcache.RepoKey{Label: label, Releasever: releasever}
			if haveBasearch {
				key.BasearchID = basearchID
			}
			if repoID, ok := s.cache.RepoToID[key]; ok {
				repoIDs[repoID] = struct{}{}
			}
		}
		if csID, ok := s.cache.ContentSetLabelToID[label]; ok {
			contentSetIDs[csID] = struct{}{}
		}
	}

	cpeIDs := make(map[oval.CPEID]struct{})
	for repoID := range repoIDs {
		for _, cpeID := range s.cache.RepoIDToCPEIDs[repoID] {
			cpeIDs[cpeID] = struct{}{}
		}
	}
	if len(cpeIDs) == 0 {
		for csID := range contentSetIDs {
			for _, cpeID := range s.cache.ContentSetIDToCPEIDs[csID] {
				cpeIDs[cpeID] = struct{}{}
			}
		}
	}

	definitionSet := make(map[oval.DefinitionID]struct{})
	for cpeID := range cpeIDs {
		for _, defID := range s.cache.CPEIDToDefinitionIDs[cpeID] {
			definitionSet[defID] = struct{}{}
		}
	}

	out := make([]oval.DefinitionID, 0, len(definitionSet))
	for id := range definitionSet {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func moduleStreamSet(modules []Module) map[string]struct{} {
	out := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		out[m.Name+":"+m.Stream] = struct{}{}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
