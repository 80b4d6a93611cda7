package models

import "fmt"

// departmentNames is the static id -> display name table for the chain.
var departmentNames = map[string]string{
	"1":  "Galletitas y Golosinas",
	"2":  "Perfumeria",
	"3":  "Libreria",
	"4":  "Papeles",
	"5":  "Electronicos",
	"7":  "Jugueteria",
	"8":  "Mascotas",
	"9":  "Deportes",
	"10": "Automotor",
	"11": "Ferreteria",
	"12": "Pintureria",
	"13": "Quimicos",
	"14": "Bazar",
	"15": "PEQ ELECTRO",
	"16": "Jardineria",
	"17": "Muebles",
	"18": "Navidad",
	"19": "Decoracion",
	"20": "Cocina y Bano",
	"21": "AVES",
	"22": "Blancos",
	"23": "Caballeros",
	"24": "Ninos",
	"25": "Calzados",
	"26": "Bebes",
	"27": "Medias y Soquetes",
	"28": "Bebes - Ropa",
	"29": "Bebes - Puericultura",
	"30": "Ropa interior",
	"31": "Equipajes - Accesorios",
	"33": "Ninas",
	"34": "Damas",
	"35": "CLIMATIZACION",
	"36": "LINEA BLANCA",
	"37": "TLE servicio",
	"40": "Farmacia Venta Libre",
	"43": "Carne Vacuno",
	"46": "Cosmeticos",
	"69": "Fiambreria",
	"74": "Organizacion",
	"78": "Pescadería Retail",
	"79": "Carne Retail",
	"80": "Quesos",
	"81": "Rotiseria y Deli",
	"82": "Checkout",
	"83": "Pescaderia Costos",
	"84": "Prod. Secos y especias",
	"86": "Panaderia retail",
	"87": "Informatica & Mobile",
	"90": "Lacteos",
	"91": "Congelados",
	"92": "Almacen seco",
	"93": "CERDO GRANJA",
	"94": "Frutas y Verduras",
	"95": "Bebidas sin alcohol",
	"96": "Bebidas con alcohol",
	"97": "Envasados",
	"98": "Panaderia costos",
}

// ResolveDepartmentName maps a department id to its display name, with the
// generic fallbacks for unmapped ids and the unknown sentinel.
func ResolveDepartmentName(deptId string) string {
	if deptId == DeptUnknown {
		return "SIN INFORMACIÓN"
	}
	if name, ok := departmentNames[deptId]; ok {
		return name
	}
	return fmt.Sprintf("Depto %s", deptId)
}
