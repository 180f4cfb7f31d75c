// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ProjectInvalidId Id = iota + 1
	ConfigLoadFailedId
	StagingNotFreshId
	ToolNotFoundId
	ToolFailedId
	ToolTimeoutId
	TemplateRenderFailedId
	ArtifactInvalidId
	PublishFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "](" + string(link) + ")\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "](" + string(link) + ")\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	projectInvalidIssue = &Issue{
		id: ProjectInvalidId,
		mdMsg: `
# The project definition is invalid!

sunpkg could not build a package descriptor from your project file.

## Things you can try:
- Make sure ` + "`name`, `version` and `install_dir`" + ` are set
- ` + "`install_dir`" + ` must be an absolute path such as ` + "`/opt/myapp`" + `
- ` + "`iteration`" + ` must be a positive number

## Example project.cue:
~~~cue
name:        "myapp"
version:     "1.2.3"
iteration:   1
install_dir: "/opt/myapp"
maintainer:  "Acme Ops <ops@example.com>"
description: "My application"
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Print the effective configuration:
~~~
$ sunpkg config show
~~~
- Write a fresh default file and edit it:
~~~
$ sunpkg config init
~~~`,
	}

	stagingNotFreshIssue = &Issue{
		id: StagingNotFreshId,
		mdMsg: `
# The staging directory is not empty!

Packaging tools are not idempotent, so every build needs a fresh staging
directory. Leftovers from a failed build are kept for inspection.

## Things you can try:
- Remove the old staging directory after you are done inspecting it
- Leave ` + "`staging.base_dir`" + ` unset so a new temporary directory is used`,
	}

	toolNotFoundIssue = &Issue{
		id: ToolNotFoundId,
		mdMsg: `
# Packaging tool not found!

SVR4 packages need ` + "`pkgproto`, `pkgmk`, `pkgchk` and `pkgtrans`" + `.
IPS packages need ` + "`pkgsend`, `pkgfmt`, `pkgmogrify`, `pkgdepend`, `pkglint` and `pkgrepo`" + `.

## Things you can try:
- Build on a Solaris or illumos host with the packaging tools installed
- Point sunpkg at the binaries with ` + "`tools.paths`" + ` in your config`,
		extLinks: []HttpLink{"https://docs.oracle.com/cd/E23824_01/html/E21796/pkg-5.html"},
	}

	toolFailedIssue = &Issue{
		id: ToolFailedId,
		mdMsg: `
# A packaging tool exited with an error!

The output of the failing command is shown above, attributed to the stage that
ran it. The staging directory was kept so you can inspect the generated files.

## Things you can try:
- Re-run with ` + "`--verbose`" + ` to see every command and its output
- Look at ` + "`Prototype`, `pkginfo` or the `.p5m`" + ` files in the staging directory`,
	}

	toolTimeoutIssue = &Issue{
		id: ToolTimeoutId,
		mdMsg: `
# A packaging tool timed out!

## Things you can try:
- Raise ` + "`tools.timeout`" + ` in your config
- Check whether ` + "`pkglint`" + ` can reach its reference repository`,
	}

	templateRenderFailedIssue = &Issue{
		id: TemplateRenderFailedId,
		mdMsg: `
# Failed to render the package manifest template!

A template variable was missing or the template is malformed.`,
	}

	artifactInvalidIssue = &Issue{
		id: ArtifactInvalidId,
		mdMsg: `
# The artifact cannot be published!

Artifacts must be regular, non-empty files with a matching
` + "`.metadata.json`" + ` next to them, as written by ` + "`sunpkg build`" + `.`,
	}

	publishFailedIssue = &Issue{
		id: PublishFailedId,
		mdMsg: `
# Upload to the remote repository failed!

## Things you can try:
- Check the credentials (` + "`packagecloud.token`" + ` or the S3 keys)
- Check that every distribution in ` + "`publish.distros`" + ` exists
- Use ` + "`--policy best-effort`" + ` to keep uploading the remaining channels`,
		extLinks: []HttpLink{"https://packagecloud.io/docs/api"},
	}

	issues = map[Id]*Issue{
		projectInvalidIssue.Id():       projectInvalidIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		stagingNotFreshIssue.Id():      stagingNotFreshIssue,
		toolNotFoundIssue.Id():         toolNotFoundIssue,
		toolFailedIssue.Id():           toolFailedIssue,
		toolTimeoutIssue.Id():          toolTimeoutIssue,
		templateRenderFailedIssue.Id(): templateRenderFailedIssue,
		artifactInvalidIssue.Id():      artifactInvalidIssue,
		publishFailedIssue.Id():        publishFailedIssue,
	}
)

// Values returns every catalog issue ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
