package sync

import (
	"cmp"
	"slices"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
)

// ActionKind is the kind of a reconciliation action
type ActionKind string

const (
	// ActionCreateRaw creates an element from the record alone
	ActionCreateRaw ActionKind = "CreateRaw"
	// ActionCreateFromTemplate creates an element from the configured template
	ActionCreateFromTemplate ActionKind = "CreateFromTemplate"
	// ActionUpdate replaces the fingerprint and attributes of an element
	ActionUpdate ActionKind = "Update"
	// ActionArchive marks an element ARCHIVED
	ActionArchive ActionKind = "Archive"
	// ActionDelete removes an element
	ActionDelete ActionKind = "Delete"
	// ActionNoOp means the element already matches the record
	ActionNoOp ActionKind = "NoOp"
)

// ActionKinds lists every action kind in execution order
func ActionKinds() []ActionKind {
	return []ActionKind{
		ActionDelete, ActionArchive,
		ActionCreateRaw, ActionCreateFromTemplate, ActionUpdate,
		ActionNoOp,
	}
}

// IsRemoval reports whether the kind removes an element from the active catalog
func (k ActionKind) IsRemoval() bool {
	return k == ActionArchive || k == ActionDelete
}

// Action is one corrective operation for a single qualified name
type Action struct {
	Kind          ActionKind
	QualifiedName string

	// Record is set for creates, updates and NoOps on present resources
	Record *catalog.ExternalRecord

	// Element is set for updates, removals and NoOps on existing elements
	Element *catalog.CatalogElement

	// Template is set for CreateFromTemplate
	Template *catalog.Template
}

// Differ classifies external records against the catalog index
type Differ struct {
	namespace     string
	resourceType  string
	removalPolicy map[string]catalog.RemovalPolicy
}

// NewDiffer creates a differ for the elements of one namespace and resource type.
// removalPolicy maps a resource type to archive or delete; unlisted types are archived.
func NewDiffer(namespace, resourceType string, removalPolicy map[string]catalog.RemovalPolicy) *Differ {
	return &Differ{
		namespace:     namespace,
		resourceType:  resourceType,
		removalPolicy: removalPolicy,
	}
}

// Diff returns the actions that bring the index in line with records.
// It has no side effects: the same inputs always produce the same actions.
//
// Removals come first, then creates and updates, then NoOps, each group ordered by
// qualified name. Records with Present=false are treated as absent.
func (d *Differ) Diff(records []catalog.ExternalRecord, index *Index, template *catalog.Template) []Action {
	actions := make([]Action, 0, len(records)+index.Len())
	seen := make(map[string]struct{}, len(records))

	for i := range records {
		record := &records[i]
		if !record.Present {
			continue
		}
		qualifiedName := catalog.QualifiedName(d.namespace, d.resourceType, record.Name)
		if _, dup := seen[qualifiedName]; dup {
			continue
		}
		seen[qualifiedName] = struct{}{}

		element, exists := index.Get(qualifiedName)
		switch {
		case !exists && template != nil:
			actions = append(actions, Action{
				Kind: ActionCreateFromTemplate, QualifiedName: qualifiedName, Record: record, Template: template,
			})
		case !exists:
			actions = append(actions, Action{Kind: ActionCreateRaw, QualifiedName: qualifiedName, Record: record})
		case element.Fingerprint != record.Fingerprint:
			actions = append(actions, Action{
				Kind: ActionUpdate, QualifiedName: qualifiedName, Record: record, Element: element,
			})
		default:
			actions = append(actions, Action{
				Kind: ActionNoOp, QualifiedName: qualifiedName, Record: record, Element: element,
			})
		}
	}

	for _, qualifiedName := range index.Names() {
		if _, present := seen[qualifiedName]; present {
			continue
		}
		element, _ := index.Get(qualifiedName)
		if !element.IsActive() {
			actions = append(actions, Action{Kind: ActionNoOp, QualifiedName: qualifiedName, Element: element})
			continue
		}
		actions = append(actions, Action{
			Kind: d.removalKind(element), QualifiedName: qualifiedName, Element: element,
		})
	}

	slices.SortStableFunc(actions, func(a, b Action) int {
		if c := cmp.Compare(actionGroup(a.Kind), actionGroup(b.Kind)); c != 0 {
			return c
		}
		return cmp.Compare(a.QualifiedName, b.QualifiedName)
	})
	return actions
}

func (d *Differ) removalKind(element *catalog.CatalogElement) ActionKind {
	resourceType := element.ResourceType
	if resourceType == "" {
		resourceType = d.resourceType
	}
	if d.removalPolicy[resourceType] == catalog.RemovalPolicyDelete {
		return ActionDelete
	}
	return ActionArchive
}

func actionGroup(kind ActionKind) int {
	switch {
	case kind.IsRemoval():
		return 0
	case kind == ActionNoOp:
		return 2
	default:
		return 1
	}
}

// Summarize counts actions by kind
func Summarize(actions []Action) map[ActionKind]int {
	counts := make(map[ActionKind]int)
	for _, action := range actions {
		counts[action.Kind]++
	}
	return counts
}
