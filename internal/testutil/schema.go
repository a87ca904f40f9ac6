package testutil

import "github.com/roach88/stepdoc/internal/schema"

// IFC returns a small IFC-shaped schema built in Go.
//
// It mirrors the slots of the embedded IFC4 subset for the types it covers,
// so engine tests do not depend on the CUE compiler.
func IFC() *schema.Table {
	return schema.NewBuilder("IFC4").
		Add(schema.Entity{
			Name:     "IfcRoot",
			Abstract: true,
			Unique:   "GlobalId",
			Own: []schema.Attribute{
				{Name: "GlobalId", Kind: schema.KindString},
				{Name: "OwnerHistory", Kind: schema.KindRef, Optional: true, Target: "IfcOwnerHistory"},
				{Name: "Name", Kind: schema.KindString, Optional: true},
				{Name: "Description", Kind: schema.KindString, Optional: true},
			},
		}).
		Add(schema.Entity{Name: "IfcObjectDefinition", Supertype: "IfcRoot", Abstract: true}).
		Add(schema.Entity{
			Name: "IfcObject", Supertype: "IfcObjectDefinition", Abstract: true,
			Own: []schema.Attribute{{Name: "ObjectType", Kind: schema.KindString, Optional: true}},
		}).
		Add(schema.Entity{
			Name: "IfcProduct", Supertype: "IfcObject", Abstract: true,
			Own: []schema.Attribute{
				{Name: "ObjectPlacement", Kind: schema.KindRef, Optional: true},
				{Name: "Representation", Kind: schema.KindRef, Optional: true},
			},
		}).
		Add(schema.Entity{
			Name: "IfcElement", Supertype: "IfcProduct", Abstract: true,
			Own: []schema.Attribute{{Name: "Tag", Kind: schema.KindString, Optional: true}},
		}).
		Add(schema.Entity{Name: "IfcBuildingElement", Supertype: "IfcElement", Abstract: true}).
		Add(schema.Entity{
			Name: "IfcWall", Supertype: "IfcBuildingElement",
			Own: []schema.Attribute{{Name: "PredefinedType", Kind: schema.KindEnum, Optional: true}},
		}).
		Add(schema.Entity{
			Name: "IfcSlab", Supertype: "IfcBuildingElement",
			Own: []schema.Attribute{{Name: "PredefinedType", Kind: schema.KindEnum, Optional: true}},
		}).
		Add(schema.Entity{
			Name: "IfcPerson",
			Own: []schema.Attribute{
				{Name: "Identification", Kind: schema.KindString, Optional: true},
				{Name: "FamilyName", Kind: schema.KindString, Optional: true},
				{Name: "GivenName", Kind: schema.KindString, Optional: true},
				{Name: "MiddleNames", Kind: schema.KindAggregate, Optional: true},
			},
		}).
		Add(schema.Entity{
			Name: "IfcOwnerHistory",
			Own: []schema.Attribute{
				{Name: "OwningUser", Kind: schema.KindRef},
				{Name: "OwningApplication", Kind: schema.KindRef, Target: "IfcApplication"},
				{Name: "ChangeAction", Kind: schema.KindEnum, Optional: true},
				{Name: "CreationDate", Kind: schema.KindInt},
			},
		}).
		Add(schema.Entity{
			Name: "IfcApplication",
			Own: []schema.Attribute{
				{Name: "ApplicationDeveloper", Kind: schema.KindRef},
				{Name: "Version", Kind: schema.KindString},
				{Name: "ApplicationFullName", Kind: schema.KindString},
				{Name: "ApplicationIdentifier", Kind: schema.KindString},
			},
		}).
		Add(schema.Entity{Name: "IfcRelationship", Supertype: "IfcRoot", Abstract: true}).
		Add(schema.Entity{Name: "IfcRelDecomposes", Supertype: "IfcRelationship", Abstract: true}).
		Add(schema.Entity{
			Name: "IfcRelAggregates", Supertype: "IfcRelDecomposes",
			Own: []schema.Attribute{
				{Name: "RelatingObject", Kind: schema.KindRef, Target: "IfcObjectDefinition"},
				{Name: "RelatedObjects", Kind: schema.KindRefList, Target: "IfcObjectDefinition"},
			},
		}).
		Add(schema.Entity{
			Name: "Sample",
			Own: []schema.Attribute{
				{Name: "Values", Kind: schema.KindAggregate, Optional: true},
				{Name: "Scale", Kind: schema.KindReal, Optional: true},
				{Name: "Visible", Kind: schema.KindBool, Optional: true},
			},
		}).
		MustBuild()
}
