package metadata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const accountDoc = `
Account:
  fields:
    id:
      type: id
      dbType: varchar
    name:
      type: varchar
      unique: nameDeleted
    deleted:
      type: bool
      unique: nameDeleted
    number:
      type: varchar
      len: 50
      index: true
  relations:
    contacts:
      type: manyMany
      entity: Contact
      relationName: AccountContact
      midKeys: [accountId, contactId]
      additionalColumns:
        role:
          type: varchar
      conditions:
        entityType: Account
    owner:
      type: belongsTo
      entity: User
  indexes:
    name:
      columns: [name, deleted]
  uniqueIndexes:
    number: [number, deleted]
  params:
    engine: InnoDB
fieldTypes:
  currency:
    actualFields: ["", currency]
`

func parse(t *testing.T, doc string) *yaml.Node {
	t.Helper()
	node, err := ParseDocument([]byte(doc))
	require.NoError(t, err)
	return node
}

func TestResolveDecodesInDeclaredOrder(t *testing.T) {
	g, err := Layers{Base: parse(t, accountDoc)}.Resolve()
	require.NoError(t, err)

	account := g.Entities["Account"]
	require.NotNil(t, account)
	assert.Equal(t, "Account", account.Name)

	var names []string
	for _, f := range account.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"id", "name", "deleted", "number"}, names)

	name, ok := account.Field("name")
	require.True(t, ok)
	assert.Equal(t, KeyFlag{Group: "nameDeleted"}, name.Unique)

	number, _ := account.Field("number")
	require.NotNil(t, number.Len)
	assert.Equal(t, 50, *number.Len)
	assert.True(t, number.Index.Enabled)

	id, _ := account.Field("id")
	assert.True(t, id.IsPrimaryID())
	assert.Equal(t, "varchar", id.StorageType())

	require.Len(t, account.Relations, 2)
	contacts := account.Relations[0]
	assert.Equal(t, ManyMany, contacts.Kind)
	assert.Equal(t, "AccountContact", contacts.RelationName)
	assert.Equal(t, []string{"accountId", "contactId"}, contacts.MidKeys)
	require.Len(t, contacts.AdditionalColumns, 1)
	assert.Equal(t, "role", contacts.AdditionalColumns[0].Name)
	assert.Equal(t, []Condition{{Name: "entityType", Value: "Account"}}, contacts.Conditions)
	assert.Equal(t, BelongsTo, account.Relations[1].Kind)

	require.Len(t, account.Indexes, 1)
	assert.Equal(t, "name", account.Indexes[0].Name)
	assert.Equal(t, []UniqueIndexDef{{Name: "number", Columns: []string{"number", "deleted"}}}, account.UniqueIndexes)
	assert.Equal(t, "InnoDB", account.Params["engine"])

	assert.Equal(t, []string{"", "currency"}, g.ActualFields("currency"))
	assert.Nil(t, g.ActualFields("unknown"))
}

func TestLayerPrecedence(t *testing.T) {
	layers := Layers{
		Base: parse(t, accountDoc),
		Overrides: []Fragment{
			{Name: "10-custom.yaml", Node: parse(t, `
Account:
  fields:
    name:
      len: 100
    industry:
      type: varchar
`)},
			{Name: "20-custom.yaml", Node: parse(t, `
Account:
  fields:
    name:
      len: 150
`)},
		},
	}

	g, err := layers.Resolve()
	require.NoError(t, err)

	account := g.Entities["Account"]
	name, _ := account.Field("name")
	require.NotNil(t, name.Len)
	assert.Equal(t, 150, *name.Len, "later fragments win")
	assert.Equal(t, "varchar", name.Type, "merged keys keep base values")

	// new keys are appended after the base ones
	assert.Equal(t, "industry", account.Fields[len(account.Fields)-1].Name)

	// the base document is not modified
	base, err := Layers{Base: layers.Base}.Resolve()
	require.NoError(t, err)
	baseName, _ := base.Entities["Account"].Field("name")
	assert.Nil(t, baseName.Len)
}

func TestAppendMarker(t *testing.T) {
	layers := Layers{
		Base: parse(t, accountDoc),
		Overrides: []Fragment{{Name: "append.yaml", Node: parse(t, `
Account:
  relations:
    contacts:
      midKeys: ["__APPEND__", extraId]
  indexes:
    name:
      columns: [name]
`)}},
	}

	g, err := layers.Resolve()
	require.NoError(t, err)
	account := g.Entities["Account"]
	assert.Equal(t, []string{"accountId", "contactId", "extraId"}, account.Relations[0].MidKeys)
	assert.Equal(t, []string{"name"}, account.Indexes[0].Columns, "plain sequences replace")
}

func TestPruneAndProtect(t *testing.T) {
	layers := Layers{
		Base: parse(t, accountDoc),
		Overrides: []Fragment{{Name: "unset.yaml", Node: parse(t, `
unset:
  Account:
    - fields.number
    - relations.owner
    - params
unsetIgnore:
  - Account.params.engine
`)}},
		Prune: []string{"Account.uniqueIndexes"},
	}

	g, err := layers.Resolve()
	require.NoError(t, err)
	account := g.Entities["Account"]

	_, ok := account.Field("number")
	assert.False(t, ok)
	require.Len(t, account.Relations, 1)
	assert.Equal(t, "contacts", account.Relations[0].Name)
	assert.Empty(t, account.UniqueIndexes)
	assert.Equal(t, map[string]any{"engine": "InnoDB"}, account.Params, "protected paths survive pruning")
	assert.NotContains(t, g.Entities, KeyUnset)
}

func TestFieldIsStorable(t *testing.T) {
	tests := []struct {
		field FieldDef
		want  bool
	}{
		{FieldDef{Name: "name", Type: "varchar"}, true},
		{FieldDef{Name: "fullName", Type: "varchar", NotStorable: true}, false},
		{FieldDef{Name: "accountName", Type: "foreign"}, false},
		{FieldDef{Name: "accountId", Type: "foreignId"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.field.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.field.IsStorable())
		})
	}
}

func TestParseDocument(t *testing.T) {
	node, err := ParseDocument([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, yaml.MappingNode, node.Kind)

	_, err = ParseDocument([]byte("- a\n- b\n"))
	assert.ErrorIs(t, err, ErrInvalidDocument)

	// JSON is a YAML subset
	node, err = ParseDocument([]byte(`{"Note": {"fields": {"id": {"type": "id"}}}}`))
	require.NoError(t, err)
	g, err := Layers{Base: node}.Resolve()
	require.NoError(t, err)
	assert.Contains(t, g.Entities, "Note")
}

func TestInvalidFragment(t *testing.T) {
	layers := Layers{
		Base:      parse(t, accountDoc),
		Overrides: []Fragment{{Name: "bad.yaml", Node: &yaml.Node{Kind: yaml.SequenceNode}}},
	}
	_, err := layers.Resolve()
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestGraphClone(t *testing.T) {
	g, err := Layers{Base: parse(t, accountDoc)}.Resolve()
	require.NoError(t, err)

	c := g.Clone()
	delete(c.Entities, "Account")
	assert.Contains(t, g.Entities, "Account")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestFileProvider(t *testing.T) {
	metaDir := t.TempDir()
	fragDir := t.TempDir()

	writeFile(t, metaDir, "b_contact.yaml", "Contact:\n  fields:\n    id:\n      type: id\n")
	writeFile(t, metaDir, "a_account.json", `{"Account": {"fields": {"id": {"type": "id"}}}}`)
	writeFile(t, metaDir, "README.md", "not metadata")
	writeFile(t, fragDir, "02.yaml", "Account:\n  fields:\n    name:\n      type: text\n")
	writeFile(t, fragDir, "01.yaml", "Account:\n  fields:\n    name:\n      type: varchar\n")

	layers, err := Load(context.Background(), NewFileProvider(metaDir, fragDir))
	require.NoError(t, err)
	require.Len(t, layers.Overrides, 2)
	assert.Equal(t, "01.yaml", layers.Overrides[0].Name)
	assert.Equal(t, "02.yaml", layers.Overrides[1].Name)

	g, err := layers.Resolve()
	require.NoError(t, err)
	assert.Len(t, g.Entities, 2)
	name, ok := g.Entities["Account"].Field("name")
	require.True(t, ok)
	assert.Equal(t, "text", name.Type)
}

func TestFileProviderErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewFileProvider("", "").EntityDefinitions(ctx)
	assert.Error(t, err)

	_, err = NewFileProvider(t.TempDir(), "").EntityDefinitions(ctx)
	assert.Error(t, err, "an empty metadata directory is an error")

	fragments, err := NewFileProvider("", filepath.Join(t.TempDir(), "missing")).CustomTableFragments(ctx)
	require.NoError(t, err)
	assert.Empty(t, fragments)

	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "Account: [unterminated\n")
	_, err = NewFileProvider(dir, "").EntityDefinitions(ctx)
	assert.Error(t, err)
}
